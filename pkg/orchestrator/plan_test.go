package orchestrator

import (
	"path/filepath"
	"testing"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/graph"
	"github.com/p4forge/p4forge/pkg/registry"
)

func planPaths() Paths {
	return Paths{
		SourceRoot: "/sde/pkgsrc",
		BuildRoot:  "/sde/build",
		LogDir:     "/sde/logs",
	}
}

func planConfig() config.Configuration {
	cfg := config.Defaults("/sde")
	cfg.BuildType = config.BuildTypeDebug
	return cfg
}

func TestNewBuildPlan_TaskPaths(t *testing.T) {
	gp := &graph.Plan{Nodes: []graph.Node{
		{ID: "bf-drivers", Package: registry.Package{ID: "bf-drivers"}},
		{ID: "p4-examples@tofino2", Package: registry.Package{ID: "p4-examples", PerArch: true}, Arch: registry.ArchTofino2},
	}}

	plan := NewBuildPlan(gp, planConfig(), planPaths())
	if len(plan.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(plan.Tasks))
	}

	shared := plan.Tasks[0]
	if shared.BuildDir != filepath.Join("/sde/build", "bf-drivers") {
		t.Errorf("Unexpected build dir for shared package: %s", shared.BuildDir)
	}
	if shared.LogPath != filepath.Join("/sde/logs", "bf-drivers.log") {
		t.Errorf("Unexpected log path for shared package: %s", shared.LogPath)
	}

	// Per-architecture variants get arch-suffixed private dirs but share
	// one extracted source tree.
	perArch := plan.Tasks[1]
	if perArch.BuildDir != filepath.Join("/sde/build", "p4-examples-tofino2") {
		t.Errorf("Unexpected build dir for per-arch package: %s", perArch.BuildDir)
	}
	if perArch.LogPath != filepath.Join("/sde/logs", "p4-examples-tofino2.log") {
		t.Errorf("Unexpected log path for per-arch package: %s", perArch.LogPath)
	}
	if perArch.SourceDir != filepath.Join("/sde/pkgsrc", "p4-examples") {
		t.Errorf("Unexpected source dir for per-arch package: %s", perArch.SourceDir)
	}
}

func TestNewBuildPlan_ConfigureArgs(t *testing.T) {
	cfg := planConfig()
	cfg.BSPPath = "/opt/bsp"
	cfg.KernelModules = true
	cfg.KDir = config.KDirAuto
	cfg.P4PPFlags = "-DFOO=1"
	cfg.Advanced = map[string]bool{"asan": true, "coverage": false}

	gp := &graph.Plan{Nodes: []graph.Node{
		{ID: "bf-platforms", Package: registry.Package{ID: "bf-platforms", RequiresBSP: true}},
		{ID: "kdrv", Package: registry.Package{ID: "kdrv", RequiresKernelHeaders: true}},
		{ID: "p4-examples@tofino", Package: registry.Package{ID: "p4-examples", PerArch: true}, Arch: registry.ArchTofino},
	}}
	plan := NewBuildPlan(gp, cfg, planPaths())

	platforms := plan.Tasks[0].ConfigureArgs
	assertArg(t, platforms, "-DCMAKE_BUILD_TYPE=Debug")
	assertArg(t, platforms, "-DCMAKE_INSTALL_PREFIX="+cfg.InstallPrefix)
	assertArg(t, platforms, "-DBSP_PATH=/opt/bsp")
	assertArg(t, platforms, "-DP4PPFLAGS=-DFOO=1")
	assertArg(t, platforms, "-DASAN=ON")
	assertNoArg(t, platforms, "-DCOVERAGE=ON")
	assertNoArg(t, platforms, "-DARCHITECTURE=tofino")

	// "auto" kernel headers defer detection to the package recipe.
	assertNoArg(t, plan.Tasks[1].ConfigureArgs, "-DKDIR="+config.KDirAuto)

	perArch := plan.Tasks[2].ConfigureArgs
	assertArg(t, perArch, "-DARCHITECTURE=tofino")
}

func TestNewBuildPlan_ConfigureArgs_ExplicitKDir(t *testing.T) {
	cfg := planConfig()
	cfg.KernelModules = true
	cfg.KDir = "/usr/src/linux-headers"

	gp := &graph.Plan{Nodes: []graph.Node{
		{ID: "kdrv", Package: registry.Package{ID: "kdrv", RequiresKernelHeaders: true}},
	}}
	plan := NewBuildPlan(gp, cfg, planPaths())

	assertArg(t, plan.Tasks[0].ConfigureArgs, "-DKDIR=/usr/src/linux-headers")
}

func TestNewBuildPlan_ConfigureArgs_ArchOptions(t *testing.T) {
	pkg := registry.Package{
		ID:      "bf-drivers",
		PerArch: true,
		ArchOptions: map[registry.Architecture][]string{
			registry.ArchTofino2: {"-DTOFINO2=ON"},
		},
	}
	gp := &graph.Plan{Nodes: []graph.Node{
		{ID: "bf-drivers@tofino2", Package: pkg, Arch: registry.ArchTofino2},
		{ID: "bf-drivers@tofino", Package: pkg, Arch: registry.ArchTofino},
	}}
	plan := NewBuildPlan(gp, planConfig(), planPaths())

	assertArg(t, plan.Tasks[0].ConfigureArgs, "-DTOFINO2=ON")
	assertNoArg(t, plan.Tasks[1].ConfigureArgs, "-DTOFINO2=ON")
}

func TestCMakeBuildType(t *testing.T) {
	cases := map[config.BuildType]string{
		config.BuildTypeDebug:          "Debug",
		config.BuildTypeRelease:        "Release",
		config.BuildTypeRelWithDebInfo: "RelWithDebInfo",
	}
	for in, want := range cases {
		if got := cmakeBuildType(in); got != want {
			t.Errorf("cmakeBuildType(%s): expected %s, got %s", in, want, got)
		}
	}
}

func TestBuildPlan_Task(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{testTask("a", nil, nil)}}

	if task, ok := plan.Task("a"); !ok || task.ID != "a" {
		t.Errorf("Expected to find task a, got %v %v", task, ok)
	}
	if _, ok := plan.Task("zz"); ok {
		t.Error("Expected lookup miss for unknown task")
	}
}

func assertArg(t *testing.T, args []string, want string) {
	t.Helper()
	for _, a := range args {
		if a == want {
			return
		}
	}
	t.Errorf("Expected configure args to contain %q, got %v", want, args)
}

func assertNoArg(t *testing.T, args []string, unwanted string) {
	t.Helper()
	for _, a := range args {
		if a == unwanted {
			t.Errorf("Expected configure args to not contain %q, got %v", unwanted, args)
		}
	}
}
