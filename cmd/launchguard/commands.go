package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/provide-io/launchguard/pkg/appinfo"
	"github.com/provide-io/launchguard/pkg/exectemplate"
	"github.com/provide-io/launchguard/pkg/launcherrors"
	"github.com/provide-io/launchguard/pkg/utils/permissions"
	"github.com/spf13/cobra"
)

var (
	allowedColor = color.New(color.FgGreen, color.Bold)
	deniedColor  = color.New(color.FgRed, color.Bold)
)

// usageArgs marks argument count errors as invalid invocations.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &exitError{code: ExitInvalidArgs, err: err}
		}
		return nil
	}
}

// verdict prints allowed or denied for err. A denial keeps err's exit code;
// its reason has already been logged.
func verdict(w io.Writer, err error) error {
	if err == nil {
		allowedColor.Fprintln(w, "allowed")
		return nil
	}
	deniedColor.Fprintln(w, "denied")
	return &exitError{code: exitCode(err), err: err, reported: true}
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify DESKTOP-ID -- ARGV...",
		Short: "Check whether ARGV may launch the application",
		Args:  usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.verifier().Check(args[0], args[1:])
			return verdict(cmd.OutOrStdout(), err)
		},
	}
}

func (a *app) sandboxedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sandboxed DESKTOP-ID",
		Short: "Print whether the application runs sandboxed",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.verifier().IsSandboxed(args[0]))
			return nil
		},
	}
}

func (a *app) infoCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "info DESKTOP-ID",
		Short: "Print the application information known to the authority",
		Long: `Print the application information known to the authority.

Each entry is printed as "key = type:value", well-known keys first. With
--key only that entry's bare value is printed, lists joined with ';'.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.verifier().AppInfo(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cmd.Flags().Changed("key") {
				value, ok := plainValue(info, key)
				if !ok {
					return &exitError{code: ExitNotFound, err: fmt.Errorf("no %s entry for %s", key, args[0])}
				}
				fmt.Fprintln(w, value)
				return nil
			}

			for _, k := range info.Keys() {
				fmt.Fprintf(w, "%s = %s\n", k, info[k])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Print only the value of this key")
	return cmd
}

// plainValue formats the entry under key without its type.
func plainValue(info appinfo.AppInfo, key string) (string, bool) {
	if s, ok := info.String(key); ok {
		return s, true
	}
	if list, ok := info.Strings(key); ok {
		return strings.Join(list, ";"), true
	}
	if b, ok := info.Bool(key); ok {
		return strconv.FormatBool(b), true
	}
	if n, ok := info.Int32(key); ok {
		return strconv.FormatInt(int64(n), 10), true
	}
	if n, ok := info.UInt32(key); ok {
		return strconv.FormatUint(uint64(n), 10), true
	}
	return "", false
}

func (a *app) matchCommand() *cobra.Command {
	var exec, required, granted string

	cmd := &cobra.Command{
		Use:   "match --exec EXEC -- ARGV...",
		Short: "Match ARGV against an Exec line without contacting the authority",
		Long: `Match ARGV against an Exec line without contacting the authority.

With --permissions the declared permissions are also compared with the
--granted list. Both lists are separated by ';' or ','.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("exec") {
				return &exitError{code: ExitInvalidArgs, err: errors.New("required flag \"exec\" not set")}
			}
			logger := a.reporter.Logger()

			err := exectemplate.Validate(exec, args, logger)
			if err == nil && cmd.Flags().Changed("permissions") {
				set := permissions.NewSet(permissions.ParseList(granted))
				if missing, ok := set.FirstMissing(permissions.ParseList(required)); ok {
					logger.Error("❌ permission not granted", "permission", missing)
					err = fmt.Errorf("%w: %s", launcherrors.ErrPermissionDenied, missing)
				}
			}
			return verdict(cmd.OutOrStdout(), err)
		},
	}

	cmd.Flags().StringVar(&exec, "exec", "", "Exec line template (required)")
	cmd.Flags().StringVar(&required, "permissions", "", "Permissions the application declares")
	cmd.Flags().StringVar(&granted, "granted", "", "Permissions granted to the application")
	return cmd
}

func (a *app) appsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the applications known to the authority",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := a.verifier().Applications()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(w, id)
			}
			return nil
		},
	}
}
