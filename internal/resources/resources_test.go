package resources_test

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framekit/internal/resources"
)

func red() color.NRGBA { return color.NRGBA{R: 255, A: 255} }

func TestSetTargetUnsubscribesOld(t *testing.T) {
	lib := resources.NewLibrary(nil)
	a := lib.Add(resources.NewColour("a", red()))
	b := lib.Add(resources.NewColour("b", red()))

	modified := 0
	link := resources.NewLink("fill", resources.KindColour, resources.Hooks{
		DataModified: func(*resources.Link, resources.Item, string) { modified++ },
	})
	if err := link.SetTarget(a, lib); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	if err := link.SetTarget(b, lib); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	if n := lib.WatcherCount(a); n != 0 {
		t.Fatalf("old target still has %d watchers", n)
	}
	if err := lib.SetColour(a, color.NRGBA{G: 255, A: 255}); err != nil {
		t.Fatalf("SetColour failed: %v", err)
	}
	if modified != 0 {
		t.Fatal("old target event reached the link")
	}
	lib.MarkModified(b, "colour")
	if modified != 1 {
		t.Fatalf("modified = %d, want 1", modified)
	}
}

func TestChangeOrderHookBeforeListeners(t *testing.T) {
	lib := resources.NewLibrary(nil)
	id := lib.Add(resources.NewColour("a", red()))
	var order []string
	link := resources.NewLink("fill", resources.KindColour, resources.Hooks{
		Changed: func(*resources.Link, resources.Item, resources.Item) { order = append(order, "hook") },
	})
	link.OnChanged(func(*resources.Link, resources.Item, resources.Item) { order = append(order, "listener") })
	if err := link.SetTarget(id, lib); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	if err := lib.Replace(id, resources.NewColour("b", red())); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if got := strings.Join(order, ","); got != "hook,listener,hook,listener" {
		t.Fatalf("order = %s", got)
	}
	item, ok := link.TryGetResource()
	if !ok || item.Name() != "b" {
		t.Fatalf("TryGetResource = %v, %v; want replacement", item, ok)
	}
}

func TestOnlineAndModifiedReachListeners(t *testing.T) {
	lib := resources.NewLibrary(nil)
	id := lib.Add(resources.NewColour("a", red()))
	other := lib.Add(resources.NewColour("b", red()))
	var order []string
	link := resources.NewLink("fill", resources.KindColour, resources.Hooks{
		OnlineChanged: func(*resources.Link, resources.Item) { order = append(order, "online hook") },
		DataModified:  func(*resources.Link, resources.Item, string) { order = append(order, "modified hook") },
	})
	removeOnline := link.OnOnlineChanged(func(_ *resources.Link, item resources.Item) {
		order = append(order, fmt.Sprintf("online listener %t", item.Online()))
	})
	link.OnDataModified(func(_ *resources.Link, _ resources.Item, property string) {
		order = append(order, "modified listener "+property)
	})
	if err := link.SetTarget(id, lib); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}

	if err := lib.SetOnline(id, false); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	if err := lib.SetColour(id, red()); err != nil {
		t.Fatalf("SetColour failed: %v", err)
	}
	want := "online hook,online listener false,modified hook,modified listener colour"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}

	order = nil
	removeOnline()
	if err := lib.SetOnline(id, true); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	if got := strings.Join(order, ","); got != "online hook" {
		t.Fatalf("after removal order = %s", got)
	}

	order = nil
	if err := link.SetTarget(other, lib); err != nil {
		t.Fatalf("SetTarget failed: %v", err)
	}
	lib.MarkModified(id, "colour")
	if len(order) != 0 {
		t.Fatalf("old target still notifies: %v", order)
	}
}

func TestLinkStates(t *testing.T) {
	lib := resources.NewLibrary(nil)
	colour := lib.Add(resources.NewColour("c", red()))
	missing := filepath.Join(t.TempDir(), "missing.png")
	img := lib.Add(resources.NewImage("i", missing))

	link := resources.NewLink("fill", resources.KindColour, resources.Hooks{})
	if link.State() != resources.NotLinked {
		t.Fatalf("state = %v, want not_linked", link.State())
	}
	link.SetTarget(99, lib)
	if link.State() != resources.NoSuchResource {
		t.Fatalf("state = %v, want no_such_resource", link.State())
	}
	if _, ok := link.TryGetResource(); ok {
		t.Fatal("missing resource must not resolve")
	}
	link.SetTarget(img, lib)
	if link.State() != resources.Incompatible {
		t.Fatalf("state = %v, want incompatible", link.State())
	}
	link.SetTarget(colour, lib)
	if link.State() != resources.Linked {
		t.Fatalf("state = %v, want linked", link.State())
	}
	lib.SetOnline(colour, false)
	if link.State() != resources.Offline {
		t.Fatalf("state = %v, want offline", link.State())
	}
	if _, ok := link.TryGetResource(); ok {
		t.Fatal("offline resource must not resolve")
	}
	lib.Remove(colour)
	if link.State() != resources.NoSuchResource {
		t.Fatalf("state after remove = %v", link.State())
	}
}

type brokenManager struct {
	*resources.Library
}

func (m brokenManager) Watch(id resources.ID, obs resources.Observer) func() {
	cancel := m.Library.Watch(id, obs)
	return func() {
		cancel()
		panic("cancel exploded")
	}
}

func TestSetTargetInstallsDespiteDisposeFailure(t *testing.T) {
	lib := resources.NewLibrary(nil)
	a := lib.Add(resources.NewColour("a", red()))
	b := lib.Add(resources.NewColour("b", red()))
	link := resources.NewLink("fill", "", resources.Hooks{})
	link.SetTarget(a, brokenManager{lib})

	err := link.SetTarget(b, lib)
	if !errors.Is(err, resources.ErrDispose) {
		t.Fatalf("SetTarget error = %v, want ErrDispose", err)
	}
	if link.Target() != b {
		t.Fatalf("target = %d, want %d", link.Target(), b)
	}
	if item, ok := link.TryGetResource(); !ok || item.ID() != b {
		t.Fatal("new target not resolved")
	}
	if err := link.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := link.Dispose(); err != nil {
		t.Fatalf("second Dispose failed: %v", err)
	}
	if lib.WatcherCount(b) != 0 {
		t.Fatal("dispose left a subscription")
	}
}

func TestSetManagerMigrates(t *testing.T) {
	first := resources.NewLibrary(nil)
	second := resources.NewLibrary(nil)
	id := first.Add(resources.NewColour("first", red()))
	if err := second.Insert(id, resources.NewColour("second", red())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	link := resources.NewLink("fill", resources.KindColour, resources.Hooks{})
	link.SetTarget(id, first)
	link.SetManager(second)
	if first.WatcherCount(id) != 0 || second.WatcherCount(id) != 1 {
		t.Fatal("subscription did not migrate")
	}
	item, _ := link.TryGetResource()
	if item.Name() != "second" {
		t.Fatalf("resolved %q", item.Name())
	}
	link.SetManager(nil)
	if link.State() != resources.NotLinked {
		t.Fatalf("state without manager = %v", link.State())
	}
}

func TestImageDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, red())
	if err := png.Encode(f, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	img := resources.NewImage("dot", path)
	if !img.Online() {
		t.Fatal("existing image should start online")
	}
	decoded, err := img.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 2 {
		t.Fatalf("bounds = %v", decoded.Bounds())
	}
}

func TestLibraryInsertConflicts(t *testing.T) {
	lib := resources.NewLibrary(nil)
	if err := lib.Insert(5, resources.NewColour("x", red())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := lib.Insert(5, resources.NewColour("y", red())); !errors.Is(err, resources.ErrIDInUse) {
		t.Fatalf("duplicate insert error = %v", err)
	}
	if id := lib.Add(resources.NewColour("z", red())); id != 6 {
		t.Fatalf("Add after Insert(5) = %d, want 6", id)
	}
	if err := lib.Remove(42); !errors.Is(err, resources.ErrNotFound) {
		t.Fatalf("Remove missing error = %v", err)
	}
	if len(lib.Items()) != 2 {
		t.Fatalf("items = %d", len(lib.Items()))
	}
}
