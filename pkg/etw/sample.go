package etw

import (
	"time"
)

// Sample is one CPU usage observation: a symbolized call stack plus the
// CPU time attributed to it. Samples arrive fully symbolized; this package
// never consults the symbol subsystem itself.
type Sample struct {
	// Weight is the CPU time attributed to this sample.
	Weight time.Duration `json:"weight"`

	// Timestamp is in seconds relative to the trace start.
	Timestamp float64 `json:"timestamp"`

	// DPC and ISR mark samples taken in deferred-procedure-call or
	// interrupt-service-routine context.
	DPC bool `json:"dpc,omitempty"`
	ISR bool `json:"isr,omitempty"`

	Process Process `json:"process"`
	Thread  Thread  `json:"thread"`

	// Stack frames are preserved in the order the trace recorded them.
	Stack []Frame `json:"stack,omitempty"`
}

type Process struct {
	ID        uint32 `json:"id"`
	ImageName string `json:"image_name"`

	// ImagePath is the resolved image path. Empty when unresolvable.
	ImagePath string `json:"image_path,omitempty"`

	// ObjectAddress is the kernel object address of the process,
	// used to key the synthetic process stack frame.
	ObjectAddress *uint64 `json:"object_address,omitempty"`
}

type Thread struct {
	ID           *uint32 `json:"id,omitempty"`
	Name         string  `json:"name,omitempty"`
	StartAddress *uint64 `json:"start_address,omitempty"`
}

// Frame is one level of a call stack. Symbol is nil when the frame's
// address could not be resolved.
type Frame struct {
	// Image is the name of the image owning the frame, if known.
	Image  string  `json:"image,omitempty"`
	Symbol *Symbol `json:"symbol,omitempty"`
}

// Symbol carries the resolved symbol information for a stack frame.
type Symbol struct {
	// Image is the name of the image containing the function.
	Image string `json:"image"`

	// ImagePath is the resolved path of that image. Empty when unknown.
	ImagePath string `json:"image_path,omitempty"`

	FunctionName    string  `json:"function_name"`
	FunctionAddress *uint64 `json:"function_address,omitempty"`

	// InlinedFunctionNames lists functions inlined into this frame,
	// deepest first.
	InlinedFunctionNames []string `json:"inlined_function_names,omitempty"`

	SourceFileName   string `json:"source_file_name,omitempty"`
	SourceLineNumber int64  `json:"source_line_number,omitempty"`
}
