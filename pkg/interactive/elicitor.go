// Package interactive implements the guided configuration flow. The
// elicitor asks a strictly sequential question series and assembles the
// answers into the same override structure the profile and configure paths
// feed to the configuration resolver, so every front end validates under
// identical rules.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/registry"
)

// Elicitor walks an operator through the configuration questions.
type Elicitor struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates an elicitor reading answers from in and echoing prompts to out.
func New(in io.Reader, out io.Writer) *Elicitor {
	return &Elicitor{in: bufio.NewReader(in), out: out}
}

// Run asks the question sequence and returns the override layer it
// assembles. Every question echoes its default before accepting input; an
// empty answer takes the default.
func (e *Elicitor) Run(defaults config.Configuration) (config.Overrides, error) {
	var o config.Overrides

	fmt.Fprintln(e.out, "Interactive configuration. Press Enter to accept the shown default.")
	fmt.Fprintln(e.out)

	// 1. Deployment target.
	target, err := e.askChoice("Deployment target",
		[]string{string(config.TargetModel), string(config.TargetHardware)},
		string(defaults.DeploymentTarget))
	if err != nil {
		return o, err
	}
	dt := config.DeploymentTarget(target)
	o.DeploymentTarget = &dt

	if dt == config.TargetHardware {
		bsp, err := e.askString("Board-support-package path", defaults.BSPPath)
		if err != nil {
			return o, err
		}
		o.BSPPath = &bsp
	}

	// 2. Chip architectures.
	archAnswer, err := e.askString(
		fmt.Sprintf("Chip architectures (comma-separated, one or more of %s)",
			joinArchs(registry.AllArchitectures())),
		joinArchs(defaults.Architectures))
	if err != nil {
		return o, err
	}
	archs, err := parseArchs(archAnswer)
	if err != nil {
		return o, err
	}
	o.Architectures = archs

	// 3. Kernel modules.
	kmod, err := e.askBool("Build kernel modules", defaults.KernelModules)
	if err != nil {
		return o, err
	}
	o.KernelModules = &kmod

	// 4. Kernel header path.
	if kmod {
		kdirDefault := defaults.KDir
		if kdirDefault == "" {
			kdirDefault = config.KDirAuto
		}
		kdir, err := e.askString(
			fmt.Sprintf("Kernel header path (%q permits auto-detection)", config.KDirAuto),
			kdirDefault)
		if err != nil {
			return o, err
		}
		o.KDir = &kdir
	} else {
		fmt.Fprintln(e.out, "Kernel header path: not needed without kernel modules.")
	}

	// 5. P4 program set and control plane.
	programs, err := e.askString("P4 programs (comma-separated, empty for none)",
		strings.Join(defaults.P4Programs, ","))
	if err != nil {
		return o, err
	}
	o.P4Programs = splitList(programs)

	cp, err := e.askChoice("Control-plane code",
		[]string{string(config.ControlPlaneNone), string(config.ControlPlaneBFRT), string(config.ControlPlaneSwitch)},
		string(defaultControlPlane(defaults)))
	if err != nil {
		return o, err
	}
	cpv := config.ControlPlane(cp)
	o.ControlPlane = &cpv

	// 6. Advanced options.
	advanced, err := e.askBool("Configure advanced options", false)
	if err != nil {
		return o, err
	}
	if advanced {
		o.Advanced = make(map[string]bool, len(config.AdvancedFlags))
		for _, flag := range config.AdvancedFlags {
			on, err := e.askBool(fmt.Sprintf("Enable %s", flag), defaults.Advanced[flag])
			if err != nil {
				return o, err
			}
			o.Advanced[flag] = on
		}
	}

	return o, nil
}

// askString prompts for a free-form answer with an echoed default.
func (e *Elicitor) askString(prompt, def string) (string, error) {
	fmt.Fprintf(e.out, "%s [%s]: ", prompt, def)
	line, err := e.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read answer: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// askBool prompts for a yes/no answer.
func (e *Elicitor) askBool(prompt string, def bool) (bool, error) {
	defStr := "y/N"
	if def {
		defStr = "Y/n"
	}
	answer, err := e.askString(fmt.Sprintf("%s (%s)", prompt, defStr), "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errdefs.InvalidConfiguration(
			fmt.Sprintf("expected yes or no, got %q", answer), nil)
	}
}

// askChoice prompts for one of a fixed option set.
func (e *Elicitor) askChoice(prompt string, options []string, def string) (string, error) {
	answer, err := e.askString(
		fmt.Sprintf("%s (%s)", prompt, strings.Join(options, "|")), def)
	if err != nil {
		return "", err
	}
	for _, opt := range options {
		if answer == opt {
			return answer, nil
		}
	}
	return "", errdefs.InvalidConfiguration(
		fmt.Sprintf("%q is not one of %s", answer, strings.Join(options, ", ")), nil)
}

func defaultControlPlane(defaults config.Configuration) config.ControlPlane {
	if defaults.ControlPlane == "" {
		return config.ControlPlaneNone
	}
	return defaults.ControlPlane
}

func joinArchs(archs []registry.Architecture) string {
	parts := make([]string, len(archs))
	for i, a := range archs {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func parseArchs(answer string) ([]registry.Architecture, error) {
	parts := splitList(answer)
	if len(parts) == 0 {
		return nil, errdefs.InvalidConfiguration("at least one architecture is required", nil)
	}
	archs := make([]registry.Architecture, 0, len(parts))
	for _, p := range parts {
		if !registry.ValidArchitecture(p) {
			return nil, errdefs.InvalidConfiguration(
				fmt.Sprintf("unknown target architecture %q", p), nil)
		}
		archs = append(archs, registry.Architecture(p))
	}
	return archs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}
