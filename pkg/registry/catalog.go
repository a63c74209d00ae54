package registry

// builtinCatalog returns the static SDE package catalog.
//
// Dependency edges form the must-build-before relation: bf-syslibs is the
// root of almost everything, the driver stack layers on top of it, and the
// P4 program packages (built per architecture) sit at the leaves.
func builtinCatalog() []Package {
	return []Package{
		{
			ID:         "bf-syslibs",
			SystemDeps: []string{"build-essential", "cmake", "libjudy-dev", "libedit-dev"},
		},
		{
			ID:         "bf-utils",
			Deps:       []string{"bf-syslibs"},
			SystemDeps: []string{"libbz2-dev", "zlib1g-dev"},
			SourceDeps: []string{"boost"},
		},
		{
			ID:         "bf-drivers",
			Deps:       []string{"bf-syslibs", "bf-utils"},
			SystemDeps: []string{"libusb-1.0-0-dev", "libcurl4-openssl-dev"},
			SourceDeps: []string{"grpc", "thrift"},
			ArchOptions: map[Architecture][]string{
				ArchTofino2: {"-DTOFINO2=ON"},
				ArchTofino3: {"-DTOFINO3=ON"},
			},
		},
		{
			ID:          "bf-platforms",
			Deps:        []string{"bf-drivers"},
			RequiresBSP: true,
			SystemDeps:  []string{"libcjson-dev"},
		},
		{
			ID:           "bf-diags",
			Deps:         []string{"bf-drivers"},
			OptionalDeps: []string{"bf-platforms"},
			SourceDeps:   []string{"libcrafter"},
		},
		{
			ID:         "p4-compilers",
			Deps:       []string{"bf-syslibs"},
			SystemDeps: []string{"bison", "flex", "libfl-dev", "libgmp-dev"},
			SourceDeps: []string{"boost"},
		},
		{
			ID:      "p4-examples",
			Deps:    []string{"p4-compilers", "bf-drivers"},
			PerArch: true,
			Archs:   []Architecture{ArchTofino, ArchTofino2, ArchTofino3},
		},
		{
			ID:      "switch-p4-16",
			Deps:    []string{"p4-compilers", "bf-drivers"},
			PerArch: true,
			// No third-generation profile yet.
			Archs:      []Architecture{ArchTofino, ArchTofino2},
			SourceDeps: []string{"grpc"},
		},
		{
			ID:         "bf-pktpy",
			Deps:       []string{"bf-syslibs"},
			SystemDeps: []string{"python3-dev", "python3-pip"},
		},
		{
			ID:         "ptf-modules",
			Deps:       []string{"bf-drivers"},
			SystemDeps: []string{"python3-scapy", "tcpdump"},
		},
		{
			ID:                    "kdrv",
			Deps:                  []string{"bf-drivers"},
			RequiresKernelHeaders: true,
		},
		{
			ID:           "tofino-model",
			Deps:         []string{"bf-syslibs", "bf-utils"},
			SystemDeps:   []string{"libboost-dev"},
			SourceDeps:   []string{"boost"},
			OptionalDeps: []string{"bf-drivers"},
		},
	}
}
