package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"framekit/internal/automation"
	"framekit/internal/params"
	"framekit/internal/project"
)

func newParamsCommand(ctx *commandContext) *cobra.Command {
	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "List, show and set parameters",
	}
	paramsCmd.AddCommand(
		newParamsListCommand(ctx),
		newParamsShowCommand(ctx),
		newParamsSetCommand(ctx),
		newParamsKeyCommand(ctx),
	)
	return paramsCmd
}

func newParamsListCommand(ctx *commandContext) *cobra.Command {
	var kind string
	return &cobra.Command{
		Use:         "list [kind]",
		Short:       "List registered parameters",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				kind = args[0]
			}
			schema, err := ctx.newSchema()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, p := range schema.Registry.All() {
				info := p.Info()
				if kind != "" && !strings.EqualFold(info.Key.OwnerKind, kind) {
					continue
				}
				rows = append(rows, []string{
					strconv.Itoa(info.Index),
					paramLabel(info.Key),
					info.Key.String(),
					info.Type,
					info.Default,
					rangeText(info),
					flagText(info.Flags),
				})
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No parameters")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"#", "Label", "Key", "Type", "Default", "Range", "Flags"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}

func newParamsShowCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	var trackOnly bool
	cmd := &cobra.Command{
		Use:   "show <project>",
		Short: "Show parameter values of a track or clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args[0], false, func(p *project.Project) error {
				owner, err := resolveOwner(p, ref, trackOnly)
				if err != nil {
					return err
				}
				registry := p.Timeline().Schema().Registry
				var rows [][]string
				for _, param := range registry.Applicable(owner) {
					key := param.Key()
					automated := ""
					if param.Flags().Has(params.Automatable) && isAutomated(owner, param) {
						automated = "yes"
					}
					rows = append(rows, []string{key.String(), fmt.Sprint(param.Value(owner)), automated})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Key", "Value", "Automated"}, rows, nil))
				return nil
			})
		},
	}
	ref.bind(cmd)
	cmd.Flags().BoolVar(&trackOnly, "track-only", false, "Show the track instead of a clip")
	return cmd
}

func newParamsSetCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	var trackOnly bool
	cmd := &cobra.Command{
		Use:   "set <project> <Kind::Name> <value>",
		Short: "Set a parameter on a track or clip",
		Long: "Set a parameter value. Vectors are written as x,y. Values outside the\n" +
			"parameter's range are clamped.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := params.ParseKey(args[1])
			if err != nil {
				return err
			}
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				owner, err := resolveOwner(p, ref, trackOnly)
				if err != nil {
					return err
				}
				param, ok := p.Timeline().Schema().Registry.Lookup(key)
				if !ok {
					return fmt.Errorf("parameter %s not registered", key)
				}
				if !param.AppliesTo(owner) {
					return fmt.Errorf("parameter %s does not apply to this %s", key, ownerName(trackOnly))
				}
				if err := setParam(param, owner, args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, param.Value(owner))
				return nil
			})
		},
	}
	ref.bind(cmd)
	cmd.Flags().BoolVar(&trackOnly, "track-only", false, "Target the track instead of a clip")
	return cmd
}

func newParamsKeyCommand(ctx *commandContext) *cobra.Command {
	var ref clipRef
	var trackOnly bool
	var curve float64
	cmd := &cobra.Command{
		Use:   "key <project> <Kind::Name> <frame> <value>",
		Short: "Add an automation keyframe",
		Long: "Add a keyframe to a parameter's automation. The frame is relative to the\n" +
			"clip begin for clip parameters and absolute for track parameters.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := params.ParseKey(args[1])
			if err != nil {
				return err
			}
			f, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("frame: %w", err)
			}
			return ctx.withProject(cmd.Context(), args[0], true, func(p *project.Project) error {
				owner, err := resolveOwner(p, ref, trackOnly)
				if err != nil {
					return err
				}
				param, ok := p.Timeline().Schema().Registry.Lookup(key)
				if !ok {
					return fmt.Errorf("parameter %s not registered", key)
				}
				a, ok := owner.(automatedOwner)
				if !ok {
					return fmt.Errorf("%s cannot carry automation", ownerName(trackOnly))
				}
				if err := addKeyFrame(a.Automation(), param, f, args[3], curve); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s keyed at %d\n", key, f)
				return nil
			})
		},
	}
	ref.bind(cmd)
	cmd.Flags().BoolVar(&trackOnly, "track-only", false, "Target the track instead of a clip")
	cmd.Flags().Float64Var(&curve, "curve", 0, "Blend curve toward the next keyframe (0 is linear)")
	return cmd
}

func resolveOwner(p *project.Project, ref clipRef, trackOnly bool) (params.Owner, error) {
	track, c, err := ref.resolve(p.Timeline())
	if trackOnly && track != nil {
		return track, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

type automatedOwner interface {
	params.Owner
	Automation() *automation.Data
}

func isAutomated(owner params.Owner, p params.Parameter) bool {
	if a, ok := owner.(automatedOwner); ok {
		return a.Automation().IsAutomated(p)
	}
	return false
}

func ownerName(trackOnly bool) string {
	if trackOnly {
		return "track"
	}
	return "clip"
}

// setParam parses text according to the parameter's value type.
func setParam(p params.Parameter, owner params.Owner, text string) error {
	switch typed := p.(type) {
	case *params.Param[float64]:
		return parseInto(typed, text, parseFloat, func(v float64) { typed.SetValue(owner, v) })
	case *params.Param[int64]:
		return parseInto(typed, text, parseInt, func(v int64) { typed.SetValue(owner, v) })
	case *params.Param[bool]:
		return parseInto(typed, text, strconv.ParseBool, func(v bool) { typed.SetValue(owner, v) })
	case *params.Param[params.Vector2]:
		return parseInto(typed, text, parseVector, func(v params.Vector2) { typed.SetValue(owner, v) })
	case *params.Param[string]:
		typed.SetValue(owner, text)
		return nil
	default:
		return fmt.Errorf("%s: unsupported parameter type %s", p.Key(), p.Info().Type)
	}
}

// addKeyFrame parses text and inserts a keyframe on the owner's sequence
// for p, creating the sequence on first use.
func addKeyFrame(data *automation.Data, p params.Parameter, f int64, text string, curve float64) error {
	switch typed := p.(type) {
	case *params.Param[float64]:
		return keyInto(data, typed, f, text, curve, parseFloat)
	case *params.Param[int64]:
		return keyInto(data, typed, f, text, curve, parseInt)
	case *params.Param[bool]:
		return keyInto(data, typed, f, text, curve, strconv.ParseBool)
	case *params.Param[params.Vector2]:
		return keyInto(data, typed, f, text, curve, parseVector)
	case *params.Param[string]:
		return keyInto(data, typed, f, text, curve, func(s string) (string, error) { return s, nil })
	default:
		return fmt.Errorf("%s: unsupported parameter type %s", p.Key(), p.Info().Type)
	}
}

func parseInto[T any](p *params.Param[T], text string, parse func(string) (T, error), apply func(T)) error {
	v, err := parse(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("%s: %w", p.Key(), err)
	}
	apply(v)
	return nil
}

func keyInto[T any](data *automation.Data, p *params.Param[T], f int64, text string, curve float64, parse func(string) (T, error)) error {
	seq, err := automation.For(data, p)
	if err != nil {
		return err
	}
	return parseInto(p, text, parse, func(v T) {
		seq.AddKeyFrame(automation.KeyFrame[T]{Frame: f, Value: v, Curve: curve})
	})
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func parseInt(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseVector(s string) (params.Vector2, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return params.Vector2{}, fmt.Errorf("vector %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 32)
	if err != nil {
		return params.Vector2{}, fmt.Errorf("vector x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 32)
	if err != nil {
		return params.Vector2{}, fmt.Errorf("vector y: %w", err)
	}
	return params.Vector2{X: float32(x), Y: float32(y)}, nil
}

var titleCaser = cases.Title(language.English)

// paramLabel renders "solid::Size" as "Solid Size".
func paramLabel(key params.Key) string {
	return titleCaser.String(key.OwnerKind) + " " + splitWords(key.Name)
}

// splitWords inserts spaces before inner capitals: "DisplayName" -> "Display Name".
func splitWords(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rangeText(info params.Info) string {
	if info.Min == "" && info.Max == "" {
		return ""
	}
	return "[" + info.Min + ", " + info.Max + "]"
}

func flagText(f params.Flags) string {
	var parts []string
	if f.Has(params.AffectsRender) {
		parts = append(parts, "render")
	}
	if f.Has(params.Automatable) {
		parts = append(parts, "auto")
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
