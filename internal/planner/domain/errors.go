package domain

import "errors"

var (
	// ErrUnknownMode возникает при неизвестном режиме оптимизации
	ErrUnknownMode = errors.New("unknown optimization mode")
)

// OptimizeMode — запрошенный режим оптимизации ранжирования
type OptimizeMode string

const (
	OptimizeFastest     OptimizeMode = "fastest"
	OptimizeCheapest    OptimizeMode = "cheapest"
	OptimizeComfortable OptimizeMode = "comfortable"
)

// ParseOptimizeMode валидирует строку режима на границе
func ParseOptimizeMode(s string) (OptimizeMode, error) {
	switch OptimizeMode(s) {
	case OptimizeFastest, OptimizeCheapest, OptimizeComfortable:
		return OptimizeMode(s), nil
	default:
		return "", ErrUnknownMode
	}
}
