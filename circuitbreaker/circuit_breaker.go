package circuitbreaker

import (
	"context"
	"errors"

	"github.com/afex/hystrix-go/hystrix"
)

// Config mirrors hystrix.CommandConfig. Timeout is in milliseconds and acts
// as the individual deadline of every call executed in a circuit.
type Config struct {
	Timeout                int
	MaxConcurrentRequests  int
	RequestVolumeThreshold int
	SleepWindow            int
	ErrorPercentThreshold  int
}

// CircuitBreaker wraps calls to external providers. Each named circuit is
// configured on first use and trips independently, so one unresponsive
// provider neither stalls nor poisons the others.
type CircuitBreaker struct {
	config Config
}

func NewCircuitBreaker(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
	}
}

// Execute runs exec inside the named circuit. This is a blocking function.
func (cb *CircuitBreaker) Execute(ctx context.Context, circuitName string, exec func() (interface{}, error)) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if hystrix.GetCircuitSettings()[circuitName] == nil {
		hystrix.ConfigureCommand(circuitName, hystrix.CommandConfig{
			Timeout:                cb.config.Timeout,
			MaxConcurrentRequests:  cb.config.MaxConcurrentRequests,
			RequestVolumeThreshold: cb.config.RequestVolumeThreshold,
			SleepWindow:            cb.config.SleepWindow,
			ErrorPercentThreshold:  cb.config.ErrorPercentThreshold,
		})
	}

	var result interface{}
	err := hystrix.DoC(ctx, circuitName, func(ctx context.Context) error {
		res, err := exec()
		// Write to result only if success
		if err == nil {
			result = res
		}
		return err
	}, nil)

	return result, err
}

// IsTimeout reports whether the error was produced by the circuit's own
// deadline rather than by the wrapped call.
func IsTimeout(err error) bool {
	return errors.Is(err, hystrix.ErrTimeout)
}
