package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/p00ya/native-messaging/internal/nativemsg/install"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app, f *rootFlags) *cobra.Command {
	var browsers []string

	cmd := &cobra.Command{
		Use:   "verify NAME",
		Short: "Report which browsers can find a host",
		Long: `verify prints, per browser, whether a well-shaped manifest for NAME is
discoverable.  It exits with status 2 if no browser can find the host.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := checkFormat(f.output); err != nil {
				return err
			}

			in, closeLog, err := f.installer(a)
			if err != nil {
				return err
			}
			defer closeLog()

			targets := browserList(browsers, nil)
			report, err := in.Status(name, targets, f.scope())
			if err != nil {
				return err
			}
			err = printResult(a.stdout, f.output, report, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "BROWSER\tFAMILY\tINSTALLED\tPATH\tREASON")
				for _, st := range report {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", st.Browser, st.Family, st.Installed, dash(st.Path), dash(st.Reason))
				}
			})
			if err != nil {
				return err
			}

			ok, err := in.Verify(name, targets, f.scope())
			if err != nil {
				return err
			}
			if !ok {
				return errNotInstalled
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&browsers, "browser", "b", nil, "Browsers to check (default all)")
	return cmd
}

// browserInfo is one row of the browsers listing.
type browserInfo struct {
	Browser   string `json:"browser" yaml:"browser"`
	Family    string `json:"family" yaml:"family"`
	Registry  bool   `json:"registry" yaml:"registry"`
	UserDir   string `json:"user_dir,omitempty" yaml:"user_dir,omitempty"`
	SystemDir string `json:"system_dir,omitempty" yaml:"system_dir,omitempty"`
}

func newBrowsersCmd(a *app, f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "browsers",
		Short: "List configured browsers and their manifest directories",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.output); err != nil {
				return err
			}
			in, closeLog, err := f.installer(a)
			if err != nil {
				return err
			}
			defer closeLog()

			var rows []browserInfo
			for _, b := range allBrowsers(in) {
				cfg := in.Config().Browsers[string(b)]
				row := browserInfo{Browser: string(b), Family: string(cfg.Family)}
				// Unresolvable directories are left blank.
				row.UserDir, _ = in.ManifestDir(b, install.ScopeUser)
				row.SystemDir, _ = in.ManifestDir(b, install.ScopeSystem)
				_, row.Registry, _ = in.RegistryKey(b, install.ScopeUser, "")
				rows = append(rows, row)
			}

			return printResult(a.stdout, f.output, rows, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "BROWSER\tFAMILY\tREGISTRY\tUSER DIR\tSYSTEM DIR")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", r.Browser, r.Family, r.Registry, dash(r.UserDir), dash(r.SystemDir))
				}
			})
		},
	}
}
