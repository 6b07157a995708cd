package tactic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// =============================================================================
// INTERPRETED SOLVER PLUGINS
// =============================================================================
// User-supplied automation is interpreted with Yaegi rather than compiled
// and loaded as a shared object. A plugin is a Go source file defining
//
//	func Solve(goal string) (string, error)
//
// which receives the printed goal and answers with a semicolon-separated
// list of registered tactic names to try in order. Plugins never see
// theorems, so a broken plugin can misdirect the search but cannot forge a
// proof.

const pluginTimeout = 5 * time.Second

// Only side-effect-free stdlib packages are available to plugins.
var pluginPackages = map[string]bool{
	"strings": true,
	"strconv": true,
	"fmt":     true,
	"math":    true,
	"regexp":  true,
	"sort":    true,
	"unicode": true,
}

// SolverPlugin is a loaded, interpreted goal classifier.
type SolverPlugin struct {
	name  string
	solve func(string) (string, error)
}

// LoadPlugin interprets plugin source and binds its Solve function.
func LoadPlugin(name, source string) (*SolverPlugin, error) {
	if err := validatePluginImports(source); err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin %s: failed to load stdlib: %w", name, err)
	}
	if _, err := i.Eval(wrapPluginSource(source)); err != nil {
		return nil, fmt.Errorf("plugin %s: evaluation failed: %w", name, err)
	}

	v, err := i.Eval("main.Solve")
	if err != nil {
		return nil, fmt.Errorf("plugin %s: Solve function not found: %w", name, err)
	}
	fn, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("plugin %s: Solve has incorrect signature (expected: func(string) (string, error))", name)
	}
	return &SolverPlugin{name: name, solve: fn}, nil
}

// LoadPluginFile loads a plugin from disk, named after the file.
func LoadPluginFile(path string) (*SolverPlugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadPlugin(name, string(src))
}

// Name returns the plugin name.
func (p *SolverPlugin) Name() string {
	return p.name
}

// Tactic turns the plugin into a tactic: the plugin picks registry entries
// by name and they are tried left to right on the goal.
func (p *SolverPlugin) Tactic(reg *Registry) Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		answer, err := p.ask(term.String(goal))
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.name, err)
		}
		var ts []Tactic
		for _, name := range strings.FieldsFunc(answer, func(r rune) bool { return r == ';' || r == ',' }) {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			t, ok := reg.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("plugin %s picked unknown tactic %q", p.name, name)
			}
			ts = append(ts, t)
		}
		if len(ts) == 0 {
			return nil, fmt.Errorf("plugin %s picked no tactic for %s", p.name, term.String(goal))
		}
		return First(ts...)(pc, goal)
	}
}

// ask runs the interpreted function with a timeout so a looping plugin
// cannot wedge an extraction.
func (p *SolverPlugin) ask(goal string) (string, error) {
	resultChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		result, err := p.solve(goal)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result, nil
	case err := <-errChan:
		return "", err
	case <-time.After(pluginTimeout):
		return "", fmt.Errorf("timed out after %s", pluginTimeout)
	}
}

// validatePluginImports rejects source importing anything outside the
// allowed set.
func validatePluginImports(code string) error {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import (") {
			inBlock = true
			continue
		}
		if inBlock && strings.HasPrefix(trimmed, ")") {
			inBlock = false
			continue
		}
		if inBlock {
			imports = append(imports, strings.Trim(trimmed, `"`))
		} else if strings.HasPrefix(trimmed, "import ") {
			imports = append(imports, strings.Trim(strings.TrimPrefix(trimmed, "import "), `"`))
		}
	}

	var forbidden []string
	for _, pkg := range imports {
		if pkg == "" {
			continue
		}
		if !pluginPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}

// wrapPluginSource puts bare plugin code into package main.
func wrapPluginSource(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}
