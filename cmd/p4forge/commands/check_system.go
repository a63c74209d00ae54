package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/registry"
)

// requiredTools are the external programs every build step sequence needs.
var requiredTools = []string{"cmake", "make", "tar"}

func newCheckSystemCommand() *cobra.Command {
	var (
		installDir string
		asic       string
		kdir       string
	)

	cmd := &cobra.Command{
		Use:   "check-system",
		Short: "Verify the host can run SDE builds",
		Long: `Verify that the host satisfies the build prerequisites:

  - required build tools are on PATH
  - the install prefix exists or can be created and is writable
  - the requested ASIC architecture is known
  - the kernel header directory exists, when one is given`,
		Example: `  # Check with workspace defaults
  p4forge check-system

  # Check a hardware build environment
  p4forge check-system --asic tofino2 --kdir /lib/modules/$(uname -r)/build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			out := cmd.OutOrStdout()

			for _, tool := range requiredTools {
				path, err := exec.LookPath(tool)
				if err != nil {
					return errdefs.InvalidConfiguration(
						fmt.Sprintf("required tool %q not found on PATH", tool), err)
				}
				fmt.Fprintf(out, "ok: %s (%s)\n", tool, path)
			}

			if installDir == "" {
				installDir = a.settings.InstallPrefix()
			}
			if err := checkWritableDir(installDir); err != nil {
				return errdefs.InvalidConfiguration(
					fmt.Sprintf("install directory %q is not writable", installDir), err)
			}
			fmt.Fprintf(out, "ok: install directory %s\n", installDir)

			if asic != "" {
				if !registry.ValidArchitecture(asic) {
					return errdefs.InvalidConfiguration(
						fmt.Sprintf("unknown ASIC architecture %q", asic), nil)
				}
				fmt.Fprintf(out, "ok: asic %s\n", asic)
			}

			if kdir != "" && kdir != config.KDirAuto {
				info, err := os.Stat(kdir)
				if err != nil || !info.IsDir() {
					return errdefs.InvalidConfiguration(
						fmt.Sprintf("kernel header directory %q not found", kdir), err)
				}
				fmt.Fprintf(out, "ok: kernel headers %s\n", kdir)
			}

			a.logger.Info().Msg("system check passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&installDir, "install-dir", "", "install prefix to verify (default: $SDE/install)")
	cmd.Flags().StringVar(&asic, "asic", "", "target ASIC architecture to verify")
	cmd.Flags().StringVar(&kdir, "kdir", "", "kernel header directory to verify")

	return cmd
}

// checkWritableDir ensures the directory exists and accepts writes.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".p4forge-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
