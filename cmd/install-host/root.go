package main

import (
	"errors"
	"fmt"

	"github.com/p00ya/native-messaging/internal/logx"
	"github.com/p00ya/native-messaging/internal/nativemsg/install"
	"github.com/spf13/cobra"
)

// rootFlags are the flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	system     bool
	output     string
}

func newRootCmd(a *app) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "install-host",
		Short: "Register native messaging hosts with browsers",
		Long: `install-host writes, checks and removes the manifests that let browsers
launch a native messaging host.  Browser locations come from an embedded
browsers.toml, or the file named by --config or ` + install.EnvConfig + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError{errors.New("missing command")}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "browsers.toml to use instead of the embedded table")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, none (default from "+logx.EnvLevel+")")
	pf.BoolVar(&f.system, "system", false, "Install system-wide (instead of for current user)")
	pf.StringVarP(&f.output, "output", "o", "table", "output format: table, json, yaml")

	root.AddCommand(
		newInstallCmd(a, f),
		newRemoveCmd(a, f),
		newVerifyCmd(a, f),
		newBrowsersCmd(a, f),
	)
	return root
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func (f *rootFlags) scope() install.Scope {
	if f.system {
		return install.ScopeSystem
	}
	return install.ScopeUser
}

// installer loads the browser table and builds an Installer.  The returned
// function closes the log.
func (f *rootFlags) installer(a *app) (*install.Installer, func() error, error) {
	log, closeLog, err := logx.New(logx.Options{Level: f.logLevel, Out: a.stderr})
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}

	var cfg *install.Config
	if f.configPath != "" {
		cfg, err = install.LoadConfig(f.configPath)
	} else {
		cfg, err = install.DefaultConfig(nil)
	}
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	opts := append([]install.Option{install.WithLogger(log)}, a.installerOpts...)
	in, err := install.NewInstaller(cfg, opts...)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return in, closeLog, nil
}

// browserList converts --browser values; empty means def.
func browserList(names []string, def []install.Browser) []install.Browser {
	if len(names) == 0 {
		return def
	}
	bs := make([]install.Browser, len(names))
	for i, n := range names {
		bs[i] = install.Browser(n)
	}
	return bs
}

// allBrowsers lists every browser in the installer's table.
func allBrowsers(in *install.Installer) []install.Browser {
	keys := in.Config().Keys()
	bs := make([]install.Browser, len(keys))
	for i, k := range keys {
		bs[i] = install.Browser(k)
	}
	return bs
}
