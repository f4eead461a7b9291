package linker

import (
	"testing"

	"github.com/ksco/mvld/pkg/utils"
	"github.com/ksco/mvld/pkg/variant"
)

func TestArHdrReadName(t *testing.T) {
	strtab := []byte("a_rather_long_member.o/\nnext_long_member_name.o/\n")
	tests := []struct {
		name string
		body string
		want string
		rest string
	}{
		{"short.o/", "data", "short.o", "data"},
		{"/24", "data", "next_long_member_name.o", "data"},
		{"#1/8", "bsd.o\x00\x00\x00data", "bsd.o", "data"},
	}

	for _, tt := range tests {
		hdr := utils.Read[ArHdr]([]byte(arHeader(tt.name, len(tt.body))))
		body := []byte(tt.body)
		if got := hdr.ReadName(strtab, &body); got != tt.want || string(body) != tt.rest {
			t.Errorf("%s: got %q, body %q", tt.name, got, body)
		}
		if hdr.GetSize() != len(tt.body) {
			t.Errorf("%s: size %d", tt.name, hdr.GetSize())
		}
	}
}

func TestLinkArchiveMembers(t *testing.T) {
	b := &objBuilder{}
	b.text(".text", 16, []byte{0xc3})
	b.global("f", ".text", 0, 1)
	impl := b.bytes(t)

	b = &objBuilder{}
	b.text(".text", 16, []byte{0x90, 0xc3})
	b.global("unused", ".text", 0, 2)
	unused := b.bytes(t)

	lib := archive(
		arMember{"f_implementation.o", impl},
		arMember{"unused.o", unused})

	ctx, f := link(t, variant.NewSession(), mainObject(t), testInput{"libf.a", lib})

	var names []string
	for _, obj := range ctx.Objs {
		if obj.File != nil {
			names = append(names, obj.File.Name)
		}
	}
	if len(names) != 2 || names[0] != "main.o" || names[1] != "libf.a(f_implementation.o)" {
		t.Fatalf("linked %q", names)
	}
	if sym := ctx.SymbolMap["unused"]; sym != nil && sym.File != nil {
		t.Errorf("unused is defined by %s", sym.File.File.Name)
	}

	text, code := sectionData(t, f, ".text")
	target := ctx.SymbolMap["f"].GetAddr()
	if target < text.Addr || target >= text.Addr+text.Size {
		t.Fatalf("f at %#x is outside .text", target)
	}
	if got, want := rel32(code, 1), int64(target)-int64(text.Addr+1)-4; got != want {
		t.Errorf("call displacement %d, want %d", got, want)
	}
	// main's 6 bytes, then the member's ret at the next 16-byte boundary.
	if text.Size != 17 {
		t.Errorf(".text size %d", text.Size)
	}
}
