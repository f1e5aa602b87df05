package storage

import (
	"encoding/json"
	"errors"

	"neurogrid/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned is the version stamp new records are saved with.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeNetwork(network model.NetworkRecord) ([]byte, error) {
	return json.Marshal(network)
}

func DecodeNetwork(data []byte) (model.NetworkRecord, error) {
	var network model.NetworkRecord
	if err := json.Unmarshal(data, &network); err != nil {
		return model.NetworkRecord{}, err
	}
	if err := checkVersion(network.VersionedRecord); err != nil {
		return model.NetworkRecord{}, err
	}
	return network, nil
}

func EncodeSample(sample model.SampleRecord) ([]byte, error) {
	return json.Marshal(sample)
}

func DecodeSample(data []byte) (model.SampleRecord, error) {
	var sample model.SampleRecord
	if err := json.Unmarshal(data, &sample); err != nil {
		return model.SampleRecord{}, err
	}
	if err := checkVersion(sample.VersionedRecord); err != nil {
		return model.SampleRecord{}, err
	}
	if err := checkVersion(sample.Network.VersionedRecord); err != nil {
		return model.SampleRecord{}, err
	}
	return sample, nil
}

func EncodeMetrics(metrics []model.TickMetrics) ([]byte, error) {
	return json.Marshal(metrics)
}

func DecodeMetrics(data []byte) ([]model.TickMetrics, error) {
	var metrics []model.TickMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
