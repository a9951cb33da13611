package pod

import (
	"fmt"
	"strconv"

	"memwatch/process"
)

// Scalar is a named numeric type the console can read and write.
// Parse yields the in-memory encoding of a value, used as a search pattern.
type Scalar struct {
	Name  string
	Size  process.ProcessMemorySize
	Read  func(proc process.Process, addr process.ProcessMemoryAddress) (string, error)
	Write func(proc process.Process, addr process.ProcessMemoryAddress, s string) error
	Parse func(s string) ([]byte, error)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func scalar[T number](name string, parse func(string) (T, error)) Scalar {
	parseValue := func(s string) (T, error) {
		v, err := parse(s)
		if err != nil {
			return v, fmt.Errorf("%s %q: %w", name, s, err)
		}
		return v, nil
	}

	return Scalar{
		Name: name,
		Size: SizeOf[T](),
		Read: func(proc process.Process, addr process.ProcessMemoryAddress) (string, error) {
			v, err := ReadT[T](proc, addr)
			if err != nil {
				return "", err
			}
			return fmt.Sprint(v), nil
		},
		Write: func(proc process.Process, addr process.ProcessMemoryAddress, s string) error {
			v, err := parseValue(s)
			if err != nil {
				return err
			}
			return WriteT(proc, addr, v)
		},
		Parse: func(s string) ([]byte, error) {
			v, err := parseValue(s)
			if err != nil {
				return nil, err
			}
			return Encode(v), nil
		},
	}
}

func parseUint[T ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(s, 0, bits)
		return T(v), err
	}
}

func parseInt[T ~int8 | ~int16 | ~int32 | ~int64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(s, 0, bits)
		return T(v), err
	}
}

func parseFloat[T ~float32 | ~float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(s, bits)
		return T(v), err
	}
}

var scalars = []Scalar{
	scalar("u8", parseUint[uint8](8)),
	scalar("u16", parseUint[uint16](16)),
	scalar("u32", parseUint[uint32](32)),
	scalar("u64", parseUint[uint64](64)),
	scalar("i8", parseInt[int8](8)),
	scalar("i16", parseInt[int16](16)),
	scalar("i32", parseInt[int32](32)),
	scalar("i64", parseInt[int64](64)),
	scalar("f32", parseFloat[float32](32)),
	scalar("f64", parseFloat[float64](64)),
}

// LookupScalar finds a scalar type by name.
func LookupScalar(name string) (Scalar, bool) {
	for _, s := range scalars {
		if s.Name == name {
			return s, true
		}
	}
	return Scalar{}, false
}

func ScalarNames() []string {
	names := make([]string, len(scalars))
	for i, s := range scalars {
		names[i] = s.Name
	}
	return names
}
