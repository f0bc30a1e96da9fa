// Package httpapi exposes workflow management and run execution over a REST
// API built on chi. JSON in, JSON out; domain errors map onto HTTP status
// codes in one place.
package httpapi
