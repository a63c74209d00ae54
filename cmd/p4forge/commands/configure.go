package commands

import (
	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/registry"
)

func newConfigureCommand() *cobra.Command {
	var (
		packages      []string
		archs         []string
		target        string
		buildType     string
		installPrefix string
		bspPath       string
		p4ppFlags     string
		extraCPPFlags string
		p4Flags       string
		kernelModules bool
		kdir          string
		p4Programs    []string
		controlPlane  string
		advanced      []string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Resolve and persist the workspace build configuration",
		Long: `Resolve the build configuration from built-in defaults, the existing
workspace profile, and the given flags (flags win over the profile, the
profile wins over defaults), validate it, and persist the result as the
workspace profile document.`,
		Example: `  # Select a hardware build for Tofino 2
  p4forge configure --arch tofino2 --target hardware --bsp-path /opt/bsp

  # Switch to a debug build, keeping everything else
  p4forge configure --build-type debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			// The existing workspace profile is the middle layer, so
			// repeated configure calls refine rather than reset.
			var profileLayer config.Overrides
			if doc, err := loadProfileDocument(a); err == nil && doc != nil {
				profileLayer = doc.Overrides()
			} else if err != nil {
				return err
			}

			cli := config.Overrides{}
			flags := cmd.Flags()
			if flags.Changed("packages") {
				cli.Packages = packages
			}
			if flags.Changed("arch") {
				parsed := make([]registry.Architecture, len(archs))
				for i, s := range archs {
					parsed[i] = registry.Architecture(s)
				}
				cli.Architectures = parsed
			}
			if flags.Changed("target") {
				t := config.DeploymentTarget(target)
				cli.DeploymentTarget = &t
			}
			if flags.Changed("build-type") {
				b := config.BuildType(buildType)
				cli.BuildType = &b
			}
			if flags.Changed("install-prefix") {
				cli.InstallPrefix = &installPrefix
			}
			if flags.Changed("bsp-path") {
				cli.BSPPath = &bspPath
			}
			if flags.Changed("p4ppflags") {
				cli.P4PPFlags = &p4ppFlags
			}
			if flags.Changed("extra-cppflags") {
				cli.ExtraCPPFlags = &extraCPPFlags
			}
			if flags.Changed("p4flags") {
				cli.P4Flags = &p4Flags
			}
			if flags.Changed("kernel-modules") {
				cli.KernelModules = &kernelModules
			}
			if flags.Changed("kdir") {
				cli.KDir = &kdir
			}
			if flags.Changed("p4-programs") {
				cli.P4Programs = p4Programs
			}
			if flags.Changed("control-plane") {
				cp := config.ControlPlane(controlPlane)
				cli.ControlPlane = &cp
			}
			if flags.Changed("advanced") {
				cli.Advanced = make(map[string]bool, len(advanced))
				for _, flag := range advanced {
					cli.Advanced[flag] = true
				}
			}

			cfg, err := a.resolver.Resolve(a.defaults(), profileLayer, cli)
			if err != nil {
				return err
			}

			if err := a.saveConfiguration(cfg); err != nil {
				return err
			}

			a.logger.Info().
				Strs("packages", cfg.Packages).
				Str("build_type", string(cfg.BuildType)).
				Str("profile", a.settings.ProfilePath).
				Msg("configuration saved")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&packages, "packages", nil, "packages to build (dependencies are auto-included)")
	cmd.Flags().StringSliceVar(&archs, "arch", nil, "target ASIC architectures")
	cmd.Flags().StringVar(&target, "target", "", "deployment target (model, hardware)")
	cmd.Flags().StringVar(&buildType, "build-type", "", "build type (debug, release, relwithdebinfo)")
	cmd.Flags().StringVar(&installPrefix, "install-prefix", "", "install prefix")
	cmd.Flags().StringVar(&bspPath, "bsp-path", "", "board-support-package path (required for hardware targets)")
	cmd.Flags().StringVar(&p4ppFlags, "p4ppflags", "", "P4 preprocessor flags")
	cmd.Flags().StringVar(&extraCPPFlags, "extra-cppflags", "", "extra C preprocessor flags")
	cmd.Flags().StringVar(&p4Flags, "p4flags", "", "P4 compiler flags")
	cmd.Flags().BoolVar(&kernelModules, "kernel-modules", false, "build kernel modules")
	cmd.Flags().StringVar(&kdir, "kdir", "", `kernel header path ("auto" permits auto-detection)`)
	cmd.Flags().StringSliceVar(&p4Programs, "p4-programs", nil, "P4 program selection")
	cmd.Flags().StringVar(&controlPlane, "control-plane", "", "control-plane selection (none, bfrt, switch)")
	cmd.Flags().StringSliceVar(&advanced, "advanced", nil, "advanced option toggles to enable")

	return cmd
}
