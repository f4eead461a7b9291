package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZenLiuCN/fn"
	"github.com/ksco/mvld/pkg/linker"
	"github.com/ksco/mvld/pkg/utils"
	"github.com/ksco/mvld/pkg/variant"
	"github.com/urfave/cli/v2"
	"github.com/xyproto/env/v2"
)

var version = "dev"

func main() {
	app := cli.NewApp()
	app.Name = "mvld"
	app.Usage = "static x86-64 ELF linker with multi-variant overlays"
	app.UsageText = "mvld [options] file..."
	app.Version = version
	app.HideHelpCommand = true
	app.Flags = flags()
	app.Action = link

	if err := app.Run(reorderArgs(app.Flags, os.Args)); err != nil {
		utils.Fatal(err)
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: env.Str("MVLD_OUTPUT", "a.out"), Usage: "write the image to `FILE`"},
		&cli.StringFlag{Name: "m", Usage: "emulation, only elf_x86_64"},
		&cli.StringFlag{Name: "entry", Aliases: []string{"e"}, Usage: "entry `SYMBOL`, _start by default"},
		&cli.BoolFlag{Name: "debug", Value: env.Bool("MVLD_DEBUG"), Usage: "log input files and dump variant tables"},

		&cli.StringFlag{Name: "variant-config", Usage: "YAML variant group `FILE`"},
		&cli.StringSliceFlag{Name: "variant-object", Usage: "object of a variant, as `SLOT:PATH` or PATH"},
		&cli.StringFlag{Name: "variant-group", Value: "gen", Usage: "group the --variant-* flags apply to"},
		&cli.StringSliceFlag{Name: "variant-pattern", Usage: "section name fragment collected into the group"},
		&cli.StringFlag{Name: "variant-equal", Usage: "move identical variant sections into output `SECTION`"},
		&cli.BoolFlag{Name: "variant-jump-table", Usage: "route clashing symbols through jump tables"},
		&cli.BoolFlag{Name: "variant-remove-exec", Usage: "map non-default variants without execute permission"},
		&cli.StringFlag{Name: "variant-log-dir", Value: env.Str("MVLD_VARIANT_LOG_DIR"), Usage: "write placement logs to `DIR`"},

		// Accepted for compiler drivers, ignored.
		&cli.StringSliceFlag{Name: "library-path", Aliases: []string{"L"}, Hidden: true},
		&cli.StringFlag{Name: "sysroot", Hidden: true},
		&cli.StringFlag{Name: "hash-style", Hidden: true},
		&cli.StringSliceFlag{Name: "plugin", Hidden: true},
		&cli.StringSliceFlag{Name: "plugin-opt", Hidden: true},
		&cli.BoolFlag{Name: "static", Hidden: true},
		&cli.BoolFlag{Name: "as-needed", Hidden: true},
		&cli.BoolFlag{Name: "start-group", Hidden: true},
		&cli.BoolFlag{Name: "end-group", Hidden: true},
		&cli.BoolFlag{Name: "build-id", Hidden: true},
		&cli.BoolFlag{Name: "no-relax", Hidden: true},
		&cli.BoolFlag{Name: "s", Hidden: true},
	}
}

// reorderArgs moves input files behind the options. Linker command lines
// mix the two, and the flag parser stops at the first positional argument.
func reorderArgs(flags []cli.Flag, args []string) []string {
	takesValue := make(map[string]bool)
	for _, f := range flags {
		_, isBool := f.(*cli.BoolFlag)
		for _, name := range f.Names() {
			takesValue[name] = !isBool
		}
	}

	opts := []string{args[0]}
	var files []string
	terminated := false
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			files = append(files, args[i+1:]...)
			terminated = true
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			files = append(files, arg)
			continue
		}
		opts = append(opts, arg)

		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if takesValue[name] && i+1 < len(args) {
			i++
			opts = append(opts, args[i])
		}
	}
	if terminated {
		opts = append(opts, "--")
	}
	return append(opts, files...)
}

func link(c *cli.Context) error {
	ctx := linker.NewContext()
	ctx.Arg.Output = c.String("output")
	ctx.Arg.Entry = c.String("entry")
	ctx.Arg.Debug = c.Bool("debug")
	ctx.Arg.LogDir = c.String("variant-log-dir")

	if m := c.String("m"); m != "" {
		ctx.Arg.Emulation = linker.ParseEmulation(m)
		if ctx.Arg.Emulation == linker.MachineTypeNone {
			return fmt.Errorf("unknown -m argument: %s", m)
		}
	}

	remaining := c.Args().Slice()
	if len(remaining) == 0 {
		return errors.New("no input files")
	}

	session, err := variantSession(c)
	if err != nil {
		return err
	}
	ctx.Variants = session

	if ctx.Arg.Emulation == linker.MachineTypeNone {
		for _, filename := range remaining {
			file := linker.MustNewFile(filename)
			ctx.Arg.Emulation = linker.GetMachineTypeFromContents(file.Contents)
			if ctx.Arg.Emulation != linker.MachineTypeNone {
				break
			}
		}
	}

	if ctx.Arg.Emulation != linker.MachineTypeX86_64 {
		return errors.New("unknown emulation type")
	}

	linker.ReadInputFiles(ctx, remaining)
	linker.Link(ctx)
	return writeOutput(ctx.Arg.Output, ctx.Buf)
}

// variantSession merges the --variant-* flags into the configuration file,
// if any, and builds the groups from the result.
func variantSession(c *cli.Context) (*variant.Session, error) {
	cfg := &variant.Config{}
	if path := c.String("variant-config"); path != "" {
		var err error
		if cfg, err = variant.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	specs := c.StringSlice("variant-object")
	if len(specs) > 0 || c.IsSet("variant-equal") || c.IsSet("variant-pattern") ||
		c.Bool("variant-jump-table") || c.Bool("variant-remove-exec") {
		g := cfg.Group(c.String("variant-group"))
		for _, spec := range specs {
			obj, err := variant.ParseObjectSpec(spec)
			if err != nil {
				return nil, err
			}
			g.Objects = append(g.Objects, obj)
		}
		if eq := c.String("variant-equal"); eq != "" {
			g.Equal = eq
		}
		if patterns := c.StringSlice("variant-pattern"); len(patterns) > 0 {
			g.Patterns = append(g.Patterns, patterns...)
		}
		g.JumpTableOnClash = g.JumpTableOnClash || c.Bool("variant-jump-table")
		g.RemoveExecute = g.RemoveExecute || c.Bool("variant-remove-exec")
	}

	if cfg.Empty() {
		return variant.NewSession(), nil
	}
	return variant.NewSessionFromConfig(cfg)
}

func writeOutput(path string, buf []byte) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0777)
	if err != nil {
		return err
	}
	defer fn.IgnoreClose(file)

	_, err = file.Write(buf)
	return err
}
