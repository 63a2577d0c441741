package msgdef

import "fmt"

// FieldType is the closed set of field kinds a schema can declare.
type FieldType int

const (
	Bool FieldType = iota + 1
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
	String
	Time
	Duration
	Message
)

var fieldTypeNames = map[FieldType]string{
	Bool:     "bool",
	Int8:     "int8",
	UInt8:    "uint8",
	Int16:    "int16",
	UInt16:   "uint16",
	Int32:    "int32",
	UInt32:   "uint32",
	Int64:    "int64",
	UInt64:   "uint64",
	Float32:  "float32",
	Float64:  "float64",
	String:   "string",
	Time:     "time",
	Duration: "duration",
	Message:  "message",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// primitiveKeywords maps schema type tokens to their field type.
// byte and char are the deprecated ROS aliases of int8 and uint8.
var primitiveKeywords = map[string]FieldType{
	"bool":     Bool,
	"byte":     Int8,
	"char":     UInt8,
	"int8":     Int8,
	"uint8":    UInt8,
	"int16":    Int16,
	"uint16":   UInt16,
	"int32":    Int32,
	"uint32":   UInt32,
	"int64":    Int64,
	"uint64":   UInt64,
	"float32":  Float32,
	"float64":  Float64,
	"string":   String,
	"time":     Time,
	"duration": Duration,
}

// fixedWidth returns the encoded width of fixed-size types.
// String and Message are variable and report 0, false.
func (t FieldType) fixedWidth() (int, bool) {
	switch t {
	case Bool, Int8, UInt8:
		return 1, true
	case Int16, UInt16:
		return 2, true
	case Int32, UInt32, Float32:
		return 4, true
	case Int64, UInt64, Float64, Time, Duration:
		return 8, true
	}
	return 0, false
}
