package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"idlely/internal/customization"
	"idlely/internal/identity"
	applog "idlely/internal/log"
	"idlely/internal/realtime"
	"idlely/internal/views/theme"
)

func credentialFlags(cmd *cobra.Command, email, password *string) {
	cmd.Flags().StringVar(email, "email", "", "account email")
	cmd.Flags().StringVar(password, "password", "", "account password (defaults to $IDLELY_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
}

func passwordOrEnv(password string) (string, error) {
	if password == "" {
		password = os.Getenv("IDLELY_PASSWORD")
	}
	if password == "" {
		return "", errors.New("a password is required: pass --password or set IDLELY_PASSWORD")
	}
	return password, nil
}

func newSignInCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and load the account's settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordOrEnv(password)
			if err != nil {
				return err
			}
			return c.with(cmd.Context(), func(a *app) error {
				if err := a.requireBackend(); err != nil {
					return err
				}
				session, err := a.client.SignIn(cmd.Context(), email, pw)
				if err != nil {
					return err
				}
				if err := a.signedIn(cmd.Context(), session); err != nil {
					return err
				}
				a.printf("Signed in as %s\n", session.User.Email)
				return nil
			})
		},
	}
	credentialFlags(cmd, &email, &password)
	return cmd
}

func newSignUpCmd(c *cli) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordOrEnv(password)
			if err != nil {
				return err
			}
			return c.with(cmd.Context(), func(a *app) error {
				if err := a.requireBackend(); err != nil {
					return err
				}
				session, err := a.client.SignUp(cmd.Context(), email, pw, name)
				if err != nil {
					return err
				}
				if err := a.signedIn(cmd.Context(), session); err != nil {
					return err
				}
				a.printf("Created account %s\n", session.User.Email)
				return nil
			})
		},
	}
	credentialFlags(cmd, &email, &password)
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newSignOutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and continue as this device's guest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.with(ctx, func(a *app) error {
				if !a.store.Identity().SignedIn() {
					a.printf("Not signed in\n")
					return nil
				}
				if a.client != nil {
					if err := a.client.SignOut(ctx); err != nil {
						applog.Warn(ctx, "backend sign out failed", "error", err)
					}
				}
				if err := identity.ForgetSession(a.cache); err != nil {
					return err
				}
				guest, err := identity.Guest(ctx, a.cache)
				if err != nil {
					return err
				}
				if err := a.store.SetIdentity(ctx, guest); err != nil {
					return err
				}
				a.printf("Signed out\n")
				return nil
			})
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current identity and subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				fmt.Fprintln(a.out, renderStatus(a.store.Identity(), a.store.Subscription(), a.client != nil))
				return nil
			})
		},
	}
}

func newShowCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				if format == formatText {
					fmt.Fprintln(a.out, renderSettings(a.store.Current(), a.store.Entitled()))
					return nil
				}
				data, err := encodeSettings(a.store.Current(), format)
				if err != nil {
					return err
				}
				fmt.Fprint(a.out, data)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format (text, json, yaml)")
	return cmd
}

// patchFlag binds one settings field to a `set` flag.
type patchFlag struct {
	name  string
	usage string
	apply func(*customization.Patch, *string)
}

var patchFlags = []patchFlag{
	{"theme", "theme mode (light, dark, auto)", func(p *customization.Patch, v *string) { p.ThemeMode = v }},
	{"primary", "primary color (#rrggbb)", func(p *customization.Patch, v *string) { p.PrimaryColor = v }},
	{"secondary", "secondary color (#rrggbb)", func(p *customization.Patch, v *string) { p.SecondaryColor = v }},
	{"accent", "accent color (#rrggbb)", func(p *customization.Patch, v *string) { p.AccentColor = v }},
	{"font-size", "font size (small, medium, large, extra-large)", func(p *customization.Patch, v *string) { p.FontSize = v }},
	{"density", "layout density (compact, comfortable, spacious)", func(p *customization.Patch, v *string) { p.LayoutDensity = v }},
	{"icons", "icon style (outline, filled, mixed)", func(p *customization.Patch, v *string) { p.IconStyle = v }},
	{"background", "background type (solid, gradient, image)", func(p *customization.Patch, v *string) { p.BackgroundType = v }},
	{"background-image", "background image URL", func(p *customization.Patch, v *string) { p.BackgroundImageURL = v }},
	{"gradient-from", "first gradient color", func(p *customization.Patch, v *string) { p.GradientColor1 = v }},
	{"gradient-to", "second gradient color", func(p *customization.Patch, v *string) { p.GradientColor2 = v }},
	{"gradient-type", "gradient shape (linear, radial)", func(p *customization.Patch, v *string) { p.GradientType = v }},
	{"gradient-angle", "linear gradient angle, e.g. 135deg", func(p *customization.Patch, v *string) { p.GradientAngle = v }},
	{"logo", "custom logo URL", func(p *customization.Patch, v *string) { p.CustomLogoURL = v }},
	{"logo-position", "logo position (top-left, top-center, top-right)", func(p *customization.Patch, v *string) { p.LogoPosition = v }},
	{"icon-pack", "custom icon pack", func(p *customization.Patch, v *string) { p.CustomIconPack = v }},
	{"font-family", "custom font family", func(p *customization.Patch, v *string) { p.CustomFontFamily = v }},
	{"font-url", "custom font stylesheet URL", func(p *customization.Patch, v *string) { p.CustomFontURL = v }},
	{"animation-speed", "animation speed (slow, normal, fast, none)", func(p *customization.Patch, v *string) { p.AnimationSpeed = v }},
	{"animation-type", "animation type (smooth, bouncy, sharp, none)", func(p *customization.Patch, v *string) { p.AnimationType = v }},
	{"css", "custom CSS appended to the stylesheet", func(p *customization.Patch, v *string) { p.CustomCSS = v }},
	{"template", "layout template (default, dashboard-focused, compact, spacious)", func(p *customization.Patch, v *string) { p.LayoutTemplate = v }},
}

func newSetCmd(c *cli) *cobra.Command {
	values := make([]string, len(patchFlags))
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual settings",
		Example: "  themectl set --theme dark --primary '#0891b2'\n" +
			"  themectl set --background gradient --gradient-angle 90deg",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch customization.Patch
			for i, f := range patchFlags {
				if cmd.Flags().Changed(f.name) {
					f.apply(&patch, &values[i])
				}
			}
			if patch.Empty() {
				return errors.New("nothing to change: pass at least one setting flag")
			}
			return c.with(cmd.Context(), func(a *app) error {
				updated, err := a.store.Update(cmd.Context(), patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, renderSettings(updated, a.store.Entitled()))
				return nil
			})
		},
	}
	for i, f := range patchFlags {
		cmd.Flags().StringVar(&values[i], f.name, "", f.usage)
	}
	return cmd
}

func newPresetsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the preset themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.out, renderPresets(customization.Presets()))
			return nil
		},
	}
}

func newPresetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "preset <name>",
		Short: "Apply a preset theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				applied, err := a.store.ApplyPreset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !applied {
					return fmt.Errorf("unknown preset %q (see themectl presets)", args[0])
				}
				a.printf("Applied %s\n", a.store.Current().PresetThemeName)
				return nil
			})
		},
	}
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				if _, err := a.store.ResetToDefaults(cmd.Context()); err != nil {
					return err
				}
				a.printf("Settings reset to defaults\n")
				return nil
			})
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the settings as a portable snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				var (
					data string
					err  error
				)
				if format == formatJSON {
					data, err = a.store.Export()
					data += "\n"
				} else {
					data, err = encodeSettings(a.store.Current(), format)
				}
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					fmt.Fprint(a.out, data)
					return nil
				}
				if err := os.WriteFile(output, []byte(data), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				a.printf("Exported settings to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "snapshot format (json, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (stdout when empty)")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the settings with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromPath(args[0])
			}
			payload, err = snapshotJSON(payload, format)
			if err != nil {
				return err
			}
			return c.with(cmd.Context(), func(a *app) error {
				if _, err := a.store.Import(cmd.Context(), payload); err != nil {
					return err
				}
				a.printf("Imported settings\n")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "snapshot format (json, yaml); guessed from the file extension")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func newActivateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <reference-key>",
		Short: "Redeem a reference key for premium access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				result := a.store.ActivatePremium(cmd.Context(), args[0])
				if !result.Success {
					return errors.New(result.Message)
				}
				a.printf("%s\n", result.Message)
				return nil
			})
		},
	}
}

func newCSSCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "css",
		Short: "Print the stylesheet the current settings produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd.Context(), func(a *app) error {
				fmt.Fprint(a.out, theme.StyleSheet(a.store.Presentation()))
				return nil
			})
		},
	}
}

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow settings changes made on other devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.with(ctx, func(a *app) error {
				if err := a.requireBackend(); err != nil {
					return err
				}
				if !a.store.Identity().SignedIn() {
					return errors.New("sign in before watching for changes")
				}
				a.printf("Watching settings for %s\n", a.store.Identity().Email)
				err := realtime.Listen(ctx, a.opts.remoteURL, a.opts.apiKey, a.client.AccessToken(), func(msg realtime.Incoming) {
					if msg.Event != realtime.EventSettingsUpdated {
						return
					}
					refreshFromRemote(ctx, a)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

func refreshFromRemote(ctx context.Context, a *app) {
	if err := a.store.Sync(ctx); err != nil {
		applog.Warn(ctx, "failed to refresh settings", "error", err)
		return
	}
	current := a.store.Current()
	a.printf("Settings updated: %s %s\n", strings.ToLower(current.ThemeMode), current.PrimaryColor)
}
