package linker

import (
	"fmt"
	"log"

	"github.com/ksco/mvld/pkg/utils"
)

func ReadInputFiles(ctx *Context, args []string) {
	for _, arg := range args {
		ReadFile(ctx, MustNewFile(arg))
	}

	if len(ctx.Objs) == 0 {
		utils.Fatal("no input files")
	}
}

func ReadFile(ctx *Context, file *File) {
	if ctx.Visited.Contains(file.Name) {
		return
	}
	ctx.Visited.Add(file.Name)

	switch GetFileType(file.Contents) {
	case FileTypeObject:
		ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, file))
	case FileTypeAr:
		for _, member := range ReadArchiveMembers(file) {
			if GetFileType(member.Contents) != FileTypeObject {
				utils.Fatal(fmt.Sprintf("%s: unknown file type", member.Name))
			}
			ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, member))
		}
	case FileTypeDso:
		utils.Fatal(fmt.Sprintf("%s: shared objects are not supported", file.Name))
	default:
		utils.Fatal(fmt.Sprintf("%s: unknown file type", file.Name))
	}
}

func CreateObjectFile(ctx *Context, file *File) *ObjectFile {
	CheckFileCompatibility(ctx, file)

	obj := NewObjectFile(file)
	obj.Priority = uint32(ctx.FilePriority)
	ctx.FilePriority++

	// Archive members are ordinary inputs, loaded only when referenced.
	// Variant objects are bound by path on the command line.
	if file.Parent != nil {
		obj.IsAlive = false
	} else if g, slot, ok := ctx.Variants.Object(file.Name); ok {
		obj.Group = g
		obj.Slot = slot
		if ctx.Arg.Debug {
			log.Printf("%s: variant group %s, slot %d", file.Name, g.Name, slot)
		}
	}

	obj.parse(ctx)
	return obj
}
