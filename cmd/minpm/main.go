package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minpm/minpm/internal/applog"
	"github.com/minpm/minpm/internal/identifier"
	"github.com/minpm/minpm/internal/manifest"
	"github.com/minpm/minpm/internal/orchestrator"
	"github.com/minpm/minpm/internal/pkgerr"
)

func main() {
	usage := `Usage:
  minpm add <spec>
  minpm install [--tree] [--offline]`

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	verbose := os.Getenv("MINPM_VERBOSE") != ""
	applog.Configure(verbose)

	var err error
	switch os.Args[1] {
	case "add":
		if len(os.Args) != 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		err = runAdd(os.Args[2])
	case "install":
		err = runInstall(os.Args[2:])
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		printDiagnostic(err)
		os.Exit(1)
	}
}

func runAdd(spec string) error {
	name, rangeOrTag := identifier.ParseSpec(spec)
	if name == "" {
		return &pkgerr.UsageError{Message: fmt.Sprintf("invalid package spec %q", spec)}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return &pkgerr.FilesystemError{Path: ".", Err: err}
	}
	path := filepath.Join(cwd, manifest.DefaultFilename)
	if err := manifest.Add(path, name, rangeOrTag); err != nil {
		return err
	}
	applog.For("add").Infof("added %s@%s", name, rangeOrTag)
	return nil
}

func runInstall(args []string) error {
	opts := orchestrator.Options{}
	for _, a := range args {
		switch a {
		case "--tree":
			opts.Tree = true
		case "--offline":
			opts.Offline = true
		default:
			return &pkgerr.UsageError{Message: fmt.Sprintf("unrecognized flag %q", a)}
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return &pkgerr.FilesystemError{Path: ".", Err: err}
	}

	layout := orchestrator.DefaultLayout(cwd)
	log := applog.For("install")
	if err := orchestrator.Install(context.Background(), layout, opts, log); err != nil {
		return err
	}
	log.Info("install complete")
	return nil
}

func printDiagnostic(err error) {
	switch e := err.(type) {
	case *pkgerr.UsageError:
		fmt.Fprintln(os.Stderr, "usage error:", e.Error())
	case *pkgerr.ManifestError:
		fmt.Fprintln(os.Stderr, "manifest error:", e.Error())
	case *pkgerr.ResolutionError:
		fmt.Fprintln(os.Stderr, "resolution error:", e.Error())
	case *pkgerr.TransportError:
		fmt.Fprintln(os.Stderr, "transport error:", e.Error())
	case *pkgerr.IntegrityError:
		fmt.Fprintln(os.Stderr, "integrity error:", e.Error())
	case *pkgerr.ExtractionError:
		fmt.Fprintln(os.Stderr, "extraction error:", e.Error())
	case *pkgerr.FilesystemError:
		fmt.Fprintln(os.Stderr, "filesystem error:", e.Error())
	default:
		fmt.Fprintln(os.Stderr, "error:", err.Error())
	}
}
