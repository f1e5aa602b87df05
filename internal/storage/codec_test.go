package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"neurogrid/internal/model"
)

func TestDecodeSampleFixture(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sample_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	sample, err := DecodeSample(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if sample.ID != "sample-minimal-1" || sample.Tick != 120 {
		t.Fatalf("unexpected sample: %+v", sample)
	}
	if sample.Agent.Lineage != 6 || sample.Agent.Position.Y != 4 || sample.Agent.Direction != "right" {
		t.Fatalf("unexpected agent: %+v", sample.Agent)
	}
	if len(sample.Network.Nodes) != 2 || sample.Network.Nodes[1].Kind != model.NodeOutput {
		t.Fatalf("unexpected network nodes: %+v", sample.Network.Nodes)
	}
	if sample.Network.Edges[0].Weight != -0.5 {
		t.Fatalf("unexpected edge: %+v", sample.Network.Edges[0])
	}
}

func TestNetworkCodecRoundTrip(t *testing.T) {
	network := testNetwork("n")
	data, err := EncodeNetwork(network)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeNetwork(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "n" || len(decoded.Edges) != 1 || decoded.Nodes[1].Activation != "sigmoid" {
		t.Fatalf("unexpected network: %+v", decoded)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	cases := map[string]func() error{
		"run": func() error {
			data, _ := EncodeRun(model.RunRecord{ID: "r", VersionedRecord: model.VersionedRecord{SchemaVersion: 2, CodecVersion: 1}})
			_, err := DecodeRun(data)
			return err
		},
		"network": func() error {
			data, _ := EncodeNetwork(model.NetworkRecord{ID: "n"})
			_, err := DecodeNetwork(data)
			return err
		},
		"sample network": func() error {
			data, _ := EncodeSample(model.SampleRecord{VersionedRecord: Versioned(), ID: "s"})
			_, err := DecodeSample(data)
			return err
		},
	}
	for name, decode := range cases {
		if err := decode(); !errors.Is(err, ErrVersionMismatch) {
			t.Fatalf("%s: expected version mismatch, got %v", name, err)
		}
	}
}

func TestDecodeMetricsRejectsGarbage(t *testing.T) {
	if _, err := DecodeMetrics([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
