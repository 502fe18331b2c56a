// Package transport содержит middleware для исходящих HTTP-запросов клиента.
// Каждое middleware оборачивает http.RoundTripper; цепочка собирается через Chain.
package transport

import "net/http"

// Middleware оборачивает RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc позволяет использовать функцию как RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain применяет middlewares к base так, что первое в списке выполняется первым.
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}
