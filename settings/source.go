package settings

import (
	"os"
	"sort"
	"strings"
)

// Origin tells which mechanism supplied the source
type Origin string

const (
	OriginExplicit Origin = "explicit"
	OriginEnv      Origin = "env"
	OriginFlag     Origin = "flag"
	// OriginPrimary marks settings a worker received from its primary
	OriginPrimary Origin = "primary"
)

// ResolvedSource is where the settings come from
type ResolvedSource struct {
	Location string
	Origin   Origin
}

// sourceCandidate is one step of the resolution chain.
// Lookup reports ok=false to let lower priorities try.
type sourceCandidate interface {
	Name() Origin
	Priority() int
	Lookup() (location string, ok bool, err error)
}

type explicitCandidate struct {
	value string
}

func (c explicitCandidate) Name() Origin  { return OriginExplicit }
func (c explicitCandidate) Priority() int { return 100 }
func (c explicitCandidate) Lookup() (string, bool, error) {
	return c.value, c.value != "", nil
}

type envCandidate struct {
	name string
}

func (c envCandidate) Name() Origin  { return OriginEnv }
func (c envCandidate) Priority() int { return 50 }
func (c envCandidate) Lookup() (string, bool, error) {
	if c.name == "" {
		return "", false, nil
	}
	v := os.Getenv(c.name)
	return v, v != "", nil
}

type flagCandidate struct {
	param string
	args  []string
}

func (c flagCandidate) Name() Origin  { return OriginFlag }
func (c flagCandidate) Priority() int { return 10 }

// Lookup finds the first --param. Both "--param value" and "--param=value" are accepted.
func (c flagCandidate) Lookup() (string, bool, error) {
	flag := "--" + c.param
	for i, arg := range c.args {
		if arg == flag {
			if i+1 >= len(c.args) || c.args[i+1] == "" {
				return "", false, ErrMissingCmdLineValue.WithMsgf("missing value for command line parameter %s", flag)
			}
			return c.args[i+1], true, nil
		}
		if v, found := strings.CutPrefix(arg, flag+"="); found {
			if v == "" {
				return "", false, ErrMissingCmdLineValue.WithMsgf("missing value for command line parameter %s", flag)
			}
			return v, true, nil
		}
	}
	return "", false, nil
}

// resolveSource walks the candidates by descending priority; the first hit wins.
// opts must already carry defaults.
func resolveSource(opts Options) (ResolvedSource, error) {
	candidates := []sourceCandidate{
		flagCandidate{param: opts.CmdLineParam, args: opts.Args},
		envCandidate{name: opts.EnvVar},
		explicitCandidate{value: opts.Source},
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() > candidates[j].Priority()
	})

	for _, c := range candidates {
		location, ok, err := c.Lookup()
		if err != nil {
			return ResolvedSource{}, err
		}
		if ok {
			return ResolvedSource{Location: location, Origin: c.Name()}, nil
		}
	}
	return ResolvedSource{}, ErrSourceNotConfigured
}
