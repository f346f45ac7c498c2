package settings

import (
	"os"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	// DefaultCmdLineParam is used when Options.CmdLineParam is empty
	DefaultCmdLineParam = "settings"
	// DefaultRequestTimeout bounds the worker handshake
	DefaultRequestTimeout = 2 * time.Second
)

var (
	cmdLineParamPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	envVarPattern       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Options configures one Initialize call
type Options struct {
	// Source is an explicit settings location; it wins over everything else
	Source string
	// EnvVar names an environment variable holding the location
	EnvVar string
	// CmdLineParam is the flag name scanned in Args as --<CmdLineParam> <location>
	CmdLineParam string
	// Args defaults to os.Args
	Args []string

	// Loader replaces the file loader
	Loader LoaderFunc
	// AllowExecutableSource lets the file loader run a source file that has an
	// execute permission bit and parse its stdout
	AllowExecutableSource bool

	// Schema is a schema file path or an in-memory schema object
	Schema        any
	SchemaOptions SchemaOptions

	ExtendedValidator ExtendedValidator

	// MultiProcess enables primary/worker distribution
	MultiProcess bool
	// Cluster decides the role; defaults to the current process topology
	Cluster Cluster
	// RequestTimeout bounds a worker's wait for the primary
	RequestTimeout time.Duration
	// OnReplyDropped observes replies the primary could not deliver
	OnReplyDropped func(ReplyDrop)
}

// SchemaOptions configure the schema compiler. Collecting all violations,
// defaults and format assertion are always enabled regardless of these values.
type SchemaOptions struct {
	// Draft is used for schemas without $schema
	Draft         *jsonschema.Draft
	AssertContent bool
	// Formats are registered in addition to the built-in ones
	Formats []*jsonschema.Format
	// AssertFormat and ApplyDefaults can only be turned on; false is overridden
	AssertFormat  bool
	ApplyDefaults bool
}

// ReplyDrop describes a reply the primary did not deliver
type ReplyDrop struct {
	WorkerID  string
	RequestID string
	Reason    error
}

// Validate checks field values
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.CmdLineParam, validation.Match(cmdLineParamPattern)),
		validation.Field(&o.EnvVar, validation.Match(envVarPattern)),
		validation.Field(&o.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&o.Cluster, validation.When(!o.MultiProcess, validation.Nil.Error("requires MultiProcess"))),
	)
}

func (o Options) withDefaults() Options {
	if o.CmdLineParam == "" {
		o.CmdLineParam = DefaultCmdLineParam
	}
	if o.Args == nil {
		o.Args = os.Args
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return o
}
