package envset

import (
	"fmt"
	"os"
	"os/exec"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Scripts are plain Starlark. The algebra is exposed as four builtins plus
// the + operator on set values:
//
//	small = from_list("THREADS", ["1", "2", "4"])
//	large = from_list("THREADS", ["8", "16"])
//	hosts = from_output("HOST", command_output("cat", "hosts.txt"))
//	envs  = cross(small + large, hosts)
//
// The script must leave the resulting set in a global named "envs".
const resultGlobal = "envs"

// setValue wraps a Set as a Starlark value. The + operator is union.
type setValue struct {
	set Set
}

var _ starlark.HasBinary = setValue{}

func (v setValue) String() string {
	return fmt.Sprintf("envset(%d environments)", v.set.Len())
}
func (v setValue) Type() string          { return "envset" }
func (v setValue) Freeze()               {}
func (v setValue) Truth() starlark.Bool  { return v.set.Len() > 0 }
func (v setValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: envset") }

// Binary implements the + operator as set union.
func (v setValue) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	if op != syntax.PLUS {
		return nil, nil
	}
	other, ok := y.(setValue)
	if !ok {
		return nil, fmt.Errorf("cannot add envset and %s", y.Type())
	}
	left, right := v, other
	if side == starlark.Right {
		left, right = other, v
	}
	union, err := Union(left.set, right.set)
	if err != nil {
		return nil, err
	}
	return setValue{set: union}, nil
}

// EvalScript evaluates the Starlark script at path and returns the set left
// in the "envs" global.
func EvalScript(path string) (Set, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Set{}, storeError("read script", err)
	}
	return EvalScriptSource(path, src)
}

// EvalScriptSource evaluates Starlark source. filename is used only for
// error positions.
func EvalScriptSource(filename string, src []byte) (Set, error) {
	thread := &starlark.Thread{Name: "envset"}
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{Set: true, While: true, TopLevelControl: true},
		thread, filename, src, builtins(),
	)
	if err != nil {
		return Set{}, fmt.Errorf("evaluate %s: %w", filename, err)
	}

	result, ok := globals[resultGlobal]
	if !ok {
		return Set{}, fmt.Errorf("%s: script must assign the %q global", filename, resultGlobal)
	}
	sv, ok := result.(setValue)
	if !ok {
		return Set{}, fmt.Errorf("%s: %q must be an envset, got %s", filename, resultGlobal, result.Type())
	}
	return sv.set, nil
}

func builtins() starlark.StringDict {
	return starlark.StringDict{
		"from_list":      starlark.NewBuiltin("from_list", builtinFromList),
		"from_output":    starlark.NewBuiltin("from_output", builtinFromOutput),
		"cross":          starlark.NewBuiltin("cross", builtinCross),
		"command_output": starlark.NewBuiltin("command_output", builtinCommandOutput),
	}
}

func builtinFromList(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var list *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "values", &list); err != nil {
		return nil, err
	}
	values := make([]string, 0, list.Len())
	for v := range list.Elements() {
		s, ok := starlark.AsString(v)
		if !ok {
			return nil, fmt.Errorf("%s: values must be strings, got %s", b.Name(), v.Type())
		}
		values = append(values, s)
	}
	set, err := FromList(name, values)
	if err != nil {
		return nil, err
	}
	return setValue{set: set}, nil
}

func builtinFromOutput(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, text string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "text", &text); err != nil {
		return nil, err
	}
	set, err := FromOutput(name, text)
	if err != nil {
		return nil, err
	}
	return setValue{set: set}, nil
}

func builtinCross(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	operands := args
	// also accept a single list of sets, matching the prototype shape
	if len(args) == 1 {
		if list, ok := args[0].(*starlark.List); ok {
			operands = make(starlark.Tuple, 0, list.Len())
			for v := range list.Elements() {
				operands = append(operands, v)
			}
		}
	}
	sets := make([]Set, 0, len(operands))
	for _, v := range operands {
		sv, ok := v.(setValue)
		if !ok {
			return nil, fmt.Errorf("%s: operands must be envsets, got %s", b.Name(), v.Type())
		}
		sets = append(sets, sv.set)
	}
	crossed, err := Cross(sets...)
	if err != nil {
		return nil, err
	}
	return setValue{set: crossed}, nil
}

func builtinCommandOutput(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: command required", b.Name())
	}
	argv := make([]string, len(args))
	for i, v := range args {
		s, ok := starlark.AsString(v)
		if !ok {
			return nil, fmt.Errorf("%s: arguments must be strings, got %s", b.Name(), v.Type())
		}
		argv[i] = s
	}
	out, err := exec.Command(argv[0], argv[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", b.Name(), argv[0], err)
	}
	return starlark.String(out), nil
}
