package sandbox

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Mocks returns stand-ins for the libraries the lessons talk about. They are
// deterministic and never touch the network.
func Mocks() starlark.StringDict {
	return starlark.StringDict{
		"tiktoken":      tiktokenModule(),
		"mcp_mock":      mcpModule(),
		"chrome_ai":     chromeAIModule(),
		"alquimia_docs": alquimiaDocsModule(),
		"metrics":       metricsModule(),
		"local_ai":      localAIModule(),
	}
}

func say(thread *starlark.Thread, msg string) {
	if thread.Print != nil {
		thread.Print(thread, msg)
	}
}

func module(name string, members starlark.StringDict) *starlarkstruct.Module {
	return &starlarkstruct.Module{Name: name, Members: members}
}

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

func tiktokenModule() *starlarkstruct.Module {
	return module("tiktoken", starlark.StringDict{
		"get_encoding": starlark.NewBuiltin("get_encoding", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "encoding_name", &name); err != nil {
				return nil, err
			}
			return encoding(name), nil
		}),
	})
}

func encoding(name string) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlark.String("Encoding"), starlark.StringDict{
		"name":   starlark.String(name),
		"encode": starlark.NewBuiltin("encode", encode),
	})
}

// encode yields one token per whitespace-separated word: the sum of the
// word's code points.
func encode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text); err != nil {
		return nil, err
	}
	return starlark.NewList(tokenize(text)), nil
}

func tokenize(text string) []starlark.Value {
	words := strings.Fields(text)
	tokens := make([]starlark.Value, len(words))
	for i, word := range words {
		sum := 0
		for _, r := range word {
			sum += int(r)
		}
		tokens[i] = starlark.MakeInt(sum)
	}
	return tokens
}

func mcpModule() *starlarkstruct.Module {
	return module("mcp_mock", starlark.StringDict{
		"connect_to_server": starlark.NewBuiltin("connect_to_server", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
				return nil, err
			}
			say(thread, fmt.Sprintf("[NEXO] Conectando al servidor MCP externo: %s...", name))
			return mcpServer(name), nil
		}),
	})
}

func mcpServer(name string) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlark.String("MCPServer"), starlark.StringDict{
		"name": starlark.String(name),
		"read_files": starlark.NewBuiltin("read_files", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
				return nil, err
			}
			return starlark.String(fmt.Sprintf("Leyendo datos del servidor MCP '%s': [gasto1.csv, balance.xlsx]", name)), nil
		}),
	})
}

func chromeAIModule() *starlarkstruct.Module {
	return module("chrome_ai", starlark.StringDict{
		"register_tool": starlark.NewBuiltin("register_tool", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			var action starlark.Value
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "action", &action); err != nil {
				return nil, err
			}
			say(thread, fmt.Sprintf("[WEBMCP] Registrada habilidad global en navegador: '%s'.", name))
			return starlark.None, nil
		}),
	})
}

func excel(param, fallback, format string) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var data starlark.Value
		kind := fallback
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data, param+"?", &kind); err != nil {
			return nil, err
		}
		return starlark.String(fmt.Sprintf(format, str(data), kind)), nil
	}
}

func alquimiaDocsModule() *starlarkstruct.Module {
	return module("alquimia_docs", starlark.StringDict{
		"generar_excel":  starlark.NewBuiltin("generar_excel", excel("formato", "contable", "Excel estructurado generado con %s (formato: %s)")),
		"generate_excel": starlark.NewBuiltin("generate_excel", excel("format", "accounting", "Structured Excel generated with %s (format: %s)")),
	})
}

// similarityScore is what every comparison scores.
const similarityScore = 0.92

func similarity(msg string) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var a, c starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "a", &a, "b", &c); err != nil {
			return nil, err
		}
		say(thread, msg)
		return starlark.Float(similarityScore), nil
	}
}

func metricsModule() *starlarkstruct.Module {
	return module("metrics", starlark.StringDict{
		"calcular_similitud":   starlark.NewBuiltin("calcular_similitud", similarity("[EVAL] Comparando similitud semántica. Puntuación: 0.92")),
		"calculate_similarity": starlark.NewBuiltin("calculate_similarity", similarity("[EVAL] Comparing semantic similarity. Score: 0.92")),
	})
}

func localAIModule() *starlarkstruct.Module {
	engine := starlarkstruct.FromStringDict(starlark.String("LocalEngine"), starlark.StringDict{
		"load_model": starlark.NewBuiltin("load_model", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
				return nil, err
			}
			say(thread, fmt.Sprintf("[WEBGPU] Cargando modelo '%s' directamente en VRAM del navegador...", name))
			return starlark.String("Motor Edge Listo. Sin latencia."), nil
		}),
	})
	return module("local_ai", starlark.StringDict{
		"init_webgpu": starlark.NewBuiltin("init_webgpu", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
				return nil, err
			}
			say(thread, "[EDGE] Inicializando WebGPU para inferencia off-grid...")
			return engine, nil
		}),
	})
}
