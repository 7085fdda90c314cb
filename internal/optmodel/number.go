package optmodel

// Number is any built-in numeric type accepted as a coefficient
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Float64s coerces coefficients to float64
func Float64s[T Number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// SetObjectiveOf is SetObjective for non-float64 cost vectors
func SetObjectiveOf[T Number](m *Model, c []T) error {
	return m.SetObjective(Float64s(c))
}

// AddConstrOf is AddConstr for non-float64 coefficient vectors
func AddConstrOf[T Number](m *Model, coefs []T, rhs float64) (*Model, error) {
	return m.AddConstr(Float64s(coefs), rhs)
}
