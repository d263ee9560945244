// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package simmgr

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/cp"
	"github.com/probeum/rv64pipe/internal/project/bundlelib"
	"github.com/probeum/rv64pipe/internal/project/configlib"
	"github.com/probeum/rv64pipe/internal/project/modulelib"
)

// runGeneration emits one <name>.hpp per transitively-reached local module,
// plus config.h, bundle.h and simulation.cpp, then copies the shared
// runtime library files alongside them.
func (t *Task) runGeneration() error {
	dir := t.generationDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return t.genFail(dir, "MkdirFailed", err)
	}

	modules, err := t.proj.Modules.TransitiveModules(t.proj.TopModule)
	if err != nil {
		return t.genFail(dir, "UnknownTopModule", err)
	}

	for _, name := range modules {
		e := t.proj.Modules.Get(name)
		if e == nil || e.IsExternal() {
			continue
		}
		if err := writeModuleHeader(dir, e.Local); err != nil {
			return t.genFail(dir, "EmitModuleFailed", err)
		}
	}

	if err := writeConfigHeader(dir, t.proj.Configs); err != nil {
		return t.genFail(dir, "EmitConfigFailed", err)
	}
	if err := writeBundleHeader(dir, t.proj.Bundles); err != nil {
		return t.genFail(dir, "EmitBundleFailed", err)
	}
	if err := writeSimulationMain(dir, modules, t.proj.TopModule); err != nil {
		return t.genFail(dir, "EmitMainFailed", err)
	}

	if t.cfg.GeneratorPath != "" {
		if fi, err := os.Stat(t.cfg.GeneratorPath); err == nil && fi.IsDir() {
			if err := cp.CopyAll(filepath.Join(dir, "runtime"), t.cfg.GeneratorPath); err != nil {
				return t.genFail(dir, "RuntimeCopyFailed", err)
			}
		}
	}

	return touchFinished(dir)
}

func (t *Task) genFail(dir, code string, cause error) error {
	_ = touchError(dir, code, cause.Error())
	return fmt.Errorf("simmgr: generation: %s: %w", code, cause)
}

// writeModuleHeader emits a minimal C++ header declaring m's storage cells
// and per-tick hook, enough for the build stage to compile against and for
// a reader of the generated tree to recognize the module it came from.
func writeModuleHeader(dir string, m *modulelib.Module) error {
	var b bytes.Buffer
	guard := cppGuard(m.Name)
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	if m.Comment != "" {
		fmt.Fprintf(&b, "// %s\n", m.Comment)
	}
	fmt.Fprintf(&b, "struct %s {\n", m.Name)

	names := make([]string, 0, len(m.Storages))
	for n := range m.Storages {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := m.Storages[n]
		fmt.Fprintf(&b, "    %s %s; // %s\n", s.TypeRef, s.Name, storageKindName(s.Kind))
	}

	fmt.Fprintf(&b, "\n    void tick();\n")
	b.WriteString("};\n\n")

	if code, ok := m.CodeBlocks["__tick__"]; ok && strings.TrimSpace(code) != "" {
		fmt.Fprintf(&b, "inline void %s::tick() {\n%s\n}\n\n", m.Name, code)
	} else {
		fmt.Fprintf(&b, "inline void %s::tick() {}\n\n", m.Name)
	}

	fmt.Fprintf(&b, "#endif // %s\n", guard)

	return os.WriteFile(filepath.Join(dir, m.Name+".hpp"), b.Bytes(), 0o644)
}

func storageKindName(k modulelib.StorageKind) string {
	switch k {
	case modulelib.StorageCommitted:
		return "committed"
	case modulelib.StorageNextCell:
		return "next"
	case modulelib.StorageScratch:
		return "scratch"
	default:
		return "unknown"
	}
}

// writeConfigHeader emits one "static constexpr" per config item, in
// name-sorted order; every value was already resolved when the config was
// added or last updated, so no re-evaluation happens here.
func writeConfigHeader(dir string, configs *configlib.Library) error {
	var b bytes.Buffer
	b.WriteString("#ifndef RV64PIPE_GEN_CONFIG_H_\n#define RV64PIPE_GEN_CONFIG_H_\n\n")
	for _, name := range configs.List() {
		it := configs.Get(name)
		if it.Comment != "" {
			fmt.Fprintf(&b, "// %s\n", it.Comment)
		}
		fmt.Fprintf(&b, "static constexpr long long %s = %d;\n", it.Name, it.Value)
	}
	b.WriteString("\n#endif // RV64PIPE_GEN_CONFIG_H_\n")
	return os.WriteFile(filepath.Join(dir, "config.h"), b.Bytes(), 0o644)
}

// writeBundleHeader emits a C++ struct/using/enum per bundle item.
func writeBundleHeader(dir string, bundles *bundlelib.Library) error {
	var b bytes.Buffer
	b.WriteString("#ifndef RV64PIPE_GEN_BUNDLE_H_\n#define RV64PIPE_GEN_BUNDLE_H_\n\n")
	for _, name := range bundles.List() {
		it := bundles.Get(name)
		switch it.Variant {
		case bundlelib.Struct:
			writeStructBundle(&b, it)
		case bundlelib.Alias:
			writeAliasBundle(&b, it)
		case bundlelib.Enum:
			writeEnumBundle(&b, it)
		}
	}
	b.WriteString("\n#endif // RV64PIPE_GEN_BUNDLE_H_\n")
	return os.WriteFile(filepath.Join(dir, "bundle.h"), b.Bytes(), 0o644)
}

func writeStructBundle(b *bytes.Buffer, it *bundlelib.Item) {
	if it.Comment != "" {
		fmt.Fprintf(b, "// %s\n", it.Comment)
	}
	fmt.Fprintf(b, "struct %s {\n", it.Name)
	for _, m := range it.Members {
		fmt.Fprintf(b, "    %s %s%s;\n", memberType(m), m.Name, memberDims(m))
	}
	b.WriteString("};\n\n")
}

func writeAliasBundle(b *bytes.Buffer, it *bundlelib.Item) {
	if it.Comment != "" {
		fmt.Fprintf(b, "// %s\n", it.Comment)
	}
	if len(it.Members) == 1 {
		m := it.Members[0]
		fmt.Fprintf(b, "using %s = %s%s;\n\n", it.Name, memberType(m), memberDims(m))
	}
}

func writeEnumBundle(b *bytes.Buffer, it *bundlelib.Item) {
	if it.Comment != "" {
		fmt.Fprintf(b, "// %s\n", it.Comment)
	}
	fmt.Fprintf(b, "enum class %s : long long {\n", it.Name)
	for _, v := range it.Values {
		fmt.Fprintf(b, "    %s = %s,\n", v.Name, v.Expr)
	}
	b.WriteString("};\n\n")
}

func memberType(m bundlelib.Member) string {
	if m.TypeRef != "" {
		return m.TypeRef
	}
	return fmt.Sprintf("uint%s_t", widthClass(m.WidthExpr))
}

// widthClass is a cosmetic best-effort mapping to a fixed-width C++ integer
// size for a literal width expression; non-literal expressions fall back to
// a 64-bit cell, the safest container for any declared width.
func widthClass(widthExpr string) string {
	switch strings.TrimSpace(widthExpr) {
	case "1", "8":
		return "8"
	case "16":
		return "16"
	case "32":
		return "32"
	default:
		return "64"
	}
}

func memberDims(m bundlelib.Member) string {
	var b strings.Builder
	for _, d := range m.DimExprs {
		fmt.Fprintf(&b, "[%s]", d)
	}
	return b.String()
}

// writeSimulationMain emits the top-level driver: it instantiates the top
// module and calls tick() in a loop, relying on the runtime library copied
// alongside it to provide the step count and I/O plumbing.
func writeSimulationMain(dir string, modules []string, topName string) error {
	var b bytes.Buffer
	b.WriteString("#include <cstdint>\n")
	for _, name := range modules {
		fmt.Fprintf(&b, "#include \"%s.hpp\"\n", name)
	}
	b.WriteString("#include \"config.h\"\n#include \"bundle.h\"\n\n")
	b.WriteString("#include \"runtime/harness.hpp\"\n\n")
	fmt.Fprintf(&b, "int main(int argc, char** argv) {\n    %s top;\n    return rv64pipe::RunHarness(argc, argv, [&]{ top.tick(); });\n}\n", topName)
	return os.WriteFile(filepath.Join(dir, "simulation.cpp"), b.Bytes(), 0o644)
}

func cppGuard(name string) string {
	return "RV64PIPE_GEN_" + strings.ToUpper(name) + "_HPP_"
}
