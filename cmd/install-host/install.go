package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/p00ya/native-messaging/internal/nativemsg/install"
	"github.com/spf13/cobra"
)

func newInstallCmd(a *app, f *rootFlags) *cobra.Command {
	var (
		desc       string
		origins    []string
		extensions []string
		browsers   []string
	)

	cmd := &cobra.Command{
		Use:   "install NAME BINARY",
		Short: "Write a host manifest for each browser",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !install.ValidateName(name) {
				return usageError{fmt.Errorf("invalid host name %q", name)}
			}
			for _, o := range origins {
				if _, err := url.Parse(o); err != nil {
					return usageError{fmt.Errorf("invalid origin URL %q", o)}
				}
			}

			binary := args[1]
			switch fi, err := os.Stat(binary); {
			case err != nil:
				fmt.Fprintf(a.stderr, "Warning: accessing binary: %v\n", err)
			case fi.Mode()&0100 == 0:
				fmt.Fprintf(a.stderr, "Warning: binary %s is not executable\n", binary)
			}
			absPath, err := filepath.Abs(binary)
			if err != nil {
				return fmt.Errorf("resolving absolute path to %s: %w", binary, err)
			}

			in, closeLog, err := f.installer(a)
			if err != nil {
				return err
			}
			defer closeLog()

			targets := browserList(browsers, []install.Browser{install.Chrome})
			err = in.Install(install.Options{
				Manifest: install.Manifest{
					Name:              name,
					Description:       desc,
					Path:              absPath,
					AllowedOrigins:    origins,
					AllowedExtensions: extensions,
				},
				Browsers: targets,
				Scope:    f.scope(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "Wrote manifest for %s (%s)\n", name, joinBrowsers(targets))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&desc, "description", "d", "", "Host description")
	fl.StringArrayVar(&origins, "origin", nil, "Allowed-origin URL for Chromium browsers.  Repeat flag for multiple URLs")
	fl.StringArrayVar(&extensions, "extension", nil, "Allowed extension id for Firefox browsers.  Repeat flag for multiple ids")
	fl.StringSliceVarP(&browsers, "browser", "b", nil, "Browsers to install for (default chrome)")
	return cmd
}

func newRemoveCmd(a *app, f *rootFlags) *cobra.Command {
	var browsers []string

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a host's manifests and registry pointers",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !install.ValidateName(name) {
				return usageError{fmt.Errorf("invalid host name %q", name)}
			}

			in, closeLog, err := f.installer(a)
			if err != nil {
				return err
			}
			defer closeLog()

			targets := browserList(browsers, allBrowsers(in))
			if err := in.Remove(name, targets, f.scope()); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed %s (%s)\n", name, joinBrowsers(targets))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&browsers, "browser", "b", nil, "Browsers to remove from (default all)")
	return cmd
}

func joinBrowsers(bs []install.Browser) string {
	ss := make([]string, len(bs))
	for i, b := range bs {
		ss[i] = string(b)
	}
	return strings.Join(ss, ", ")
}
