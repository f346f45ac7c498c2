package settings

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FileLoader reads source as a path relative to the working directory.
// With allowExec, a file carrying an execute bit is run and its stdout parsed.
func FileLoader(allowExec bool) LoaderFunc {
	return func(ctx context.Context, source string) (Document, error) {
		path, err := filepath.Abs(source)
		if err != nil {
			return Document{}, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return Document{}, err
		}
		if info.IsDir() {
			return Document{}, fmt.Errorf("%s is a directory", path)
		}

		if allowExec && info.Mode().Perm()&0o111 != 0 {
			out, err := runExecutable(ctx, path)
			if err != nil {
				return Document{}, err
			}
			return RawText(out), nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return Document{}, err
		}
		return RawText(data), nil
	}
}

func runExecutable(ctx context.Context, path string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// loadDocument runs the loader stage. The returned location is the absolute
// path for the file loader and the raw source for a custom loader.
func loadDocument(ctx context.Context, source string, opts Options) (value any, location string, err error) {
	loader := opts.Loader
	location = source
	if loader == nil {
		loader = FileLoader(opts.AllowExecutableSource)
		if abs, absErr := filepath.Abs(source); absErr == nil {
			location = abs
		}
	}

	doc, err := loader(ctx, source)
	if err == nil {
		value, err = doc.decode()
	}
	if err != nil {
		return nil, "", ErrLoad.Wrapf(err, "unable to load configuration [%s]", source)
	}
	return value, location, nil
}
