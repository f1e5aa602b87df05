package sim

import "context"

// Observer sees every state produced by Run. Returning an error stops the run.
type Observer func(State) error

// Run steps state ticks times. Cancellation is checked between ticks only; a
// tick that has started always completes.
func (s *Simulation) Run(ctx context.Context, state State, ticks int, observe Observer) (State, error) {
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		next, err := s.Step(state)
		if err != nil {
			return state, err
		}
		state = next
		if observe != nil {
			if err := observe(state); err != nil {
				return state, err
			}
		}
	}
	return state, nil
}
