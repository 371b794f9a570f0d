package pprofexport

// AllProcesses is the process filter wildcard: it disables process
// filtering entirely.
const AllProcesses = "*"

// Config controls profile export. The zero value exports every sample
// with no inline expansion and no numeric id suffixes.
type Config struct {
	// Emit one profile line per inlined function ahead of the line of
	// the frame's own function.
	IncludeInlinedFunctions bool `yaml:"include_inlined_functions"`

	// Suffix process labels with the numeric process id.
	IncludeProcessIDs bool `yaml:"include_process_ids"`

	// Suffix both process and thread labels with their numeric ids.
	IncludeProcessAndThreadIDs bool `yaml:"include_process_and_thread_ids"`

	// Case-insensitive regular expression. Its leading match is removed
	// from source file names after path separators are normalized to
	// forward slashes.
	StripSourceFileNamePrefix string `yaml:"strip_source_file_name_prefix"`

	// Inclusive export window, in seconds relative to the trace start.
	// A zero TimeEnd means unbounded.
	TimeStart float64 `yaml:"time_start"`
	TimeEnd   float64 `yaml:"time_end"`

	// Literal substrings matched against process image paths. A sample
	// is exported if its process matches any entry. Empty means export
	// everything, as does the AllProcesses wildcard entry.
	ProcessFilter []string `yaml:"process_filter,omitempty"`
}
