package forwardedheaders

import (
	"fmt"
	"reflect"
)

func (c *config) validate() error {
	if !c.forwardedHeaders.valid() {
		return fmt.Errorf("%w: 0x%x", ErrUnknownForwardedHeader, uint8(c.forwardedHeaders))
	}

	for _, name := range c.headerNames() {
		if *name.value == "" {
			return fmt.Errorf("%s: %w", name.option, ErrEmptyHeaderName)
		}
	}

	if c.forwardLimit < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidForwardLimit, c.forwardLimit)
	}

	for _, addr := range c.knownProxies {
		if !addr.IsValid() {
			return fmt.Errorf("invalid known proxy %q", addr)
		}
	}

	if isNilLogger(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNilMetrics(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

func isNilLogger(logger Logger) bool {
	return isNilInterface(logger)
}

func isNilMetrics(metrics Metrics) bool {
	return isNilInterface(metrics)
}

func isNilInterface(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
