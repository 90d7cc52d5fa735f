package ports

// Random is the injected source of every random draw in the core.
type Random interface {
	Float64() float64
	IntN(n int) int
}
