package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Describe renders a human-readable summary of a profile document.
func Describe(doc *Document) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Profile (format version %d)\n", doc.Version)

	fmt.Fprintf(&sb, "  Packages:      %s\n", orDefault(strings.Join(doc.Packages, ", ")))
	fmt.Fprintf(&sb, "  Architectures: %s\n", orDefault(strings.Join(doc.Architectures, ", ")))
	fmt.Fprintf(&sb, "  Target:        %s\n", orDefault(deref(doc.Target)))
	fmt.Fprintf(&sb, "  Build type:    %s\n", orDefault(deref(doc.Options.BuildType)))
	fmt.Fprintf(&sb, "  Install to:    %s\n", orDefault(deref(doc.Options.InstallPrefix)))

	if v := deref(doc.Options.BSPPath); v != "" {
		fmt.Fprintf(&sb, "  BSP path:      %s\n", v)
	}
	if doc.Options.KernelModules != nil && *doc.Options.KernelModules {
		fmt.Fprintf(&sb, "  Kernel mods:   yes (headers: %s)\n", orDefault(deref(doc.Options.KDir)))
	}
	for _, f := range []struct{ label, value string }{
		{"p4ppflags", deref(doc.Options.P4PPFlags)},
		{"extra-cppflags", deref(doc.Options.ExtraCPPFlags)},
		{"p4flags", deref(doc.Options.P4Flags)},
	} {
		if f.value != "" {
			fmt.Fprintf(&sb, "  %-14s %s\n", f.label+":", f.value)
		}
	}

	if len(doc.Programs.P4) > 0 {
		fmt.Fprintf(&sb, "  P4 programs:   %s (control plane: %s)\n",
			strings.Join(doc.Programs.P4, ", "), orDefault(deref(doc.Programs.ControlPlane)))
	}

	if len(doc.Advanced) > 0 {
		keys := make([]string, 0, len(doc.Advanced))
		for k := range doc.Advanced {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var on []string
		for _, k := range keys {
			if doc.Advanced[k] {
				on = append(on, k)
			}
		}
		if len(on) > 0 {
			fmt.Fprintf(&sb, "  Advanced:      %s\n", strings.Join(on, ", "))
		}
	}

	return sb.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
