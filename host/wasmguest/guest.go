package wasmguest

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
)

// Export names a guest must provide.
const (
	ExportAlloc       = "alloc"
	ExportCreateView  = "create_view"
	ExportSetFrame    = "set_frame"
	ExportSetProp     = "set_prop"
	ExportAddChild    = "add_child"
	ExportMeasure     = "measure"
	ExportReleaseView = "release_view"

	// ExportDealloc is optional. When present the host returns outgrown
	// string buffers through it.
	ExportDealloc = "dealloc"
)

// minStringBuf is the initial size of the guest string buffer.
const minStringBuf = 256

var (
	i32 = api.ValueTypeI32
	f32 = api.ValueTypeF32
)

// signatures lists the required exports with their core wasm types.
var signatures = []struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}{
	{ExportAlloc, []api.ValueType{i32}, []api.ValueType{i32}},
	{ExportCreateView, []api.ValueType{i32, i32, i32}, []api.ValueType{i32}},
	{ExportSetFrame, []api.ValueType{i32, f32, f32, f32, f32, i32}, nil},
	{ExportSetProp, []api.ValueType{i32, i32, i32, i32, i32, i32}, nil},
	{ExportAddChild, []api.ValueType{i32, i32, i32}, nil},
	{ExportMeasure, []api.ValueType{i32, f32, f32, i32, i32}, nil},
	{ExportReleaseView, []api.ValueType{i32}, nil},
}

// Config holds guest runtime settings.
type Config struct {
	// Logger receives load and failure diagnostics. Nil means no logging.
	Logger *zap.Logger

	// Name is the module instance name.
	Name string

	// MemoryLimitPages caps guest memory in 64KB pages. 0 keeps the wazero default.
	MemoryLimitPages uint32
}

// GuestError is a failure message the guest wrote into its error slot.
type GuestError struct {
	Export  string
	Message string
}

func (e *GuestError) Error() string {
	return fmt.Sprintf("guest %s: %s", e.Export, e.Message)
}

// Guest hosts views implemented inside a WebAssembly module. It implements
// shardruntime.ViewFactory. A Guest is not safe for concurrent use.
type Guest struct {
	ctx     context.Context
	runtime wazero.Runtime
	module  api.Module
	memory  api.Memory
	funcs   map[string]api.Function
	log     *zap.Logger
	scratch uint32

	// buf holds the string arguments of one call.
	buf    uint32
	bufCap uint32
}

// slot layout inside the scratch area
const (
	slotSize    = 8
	measureOut  = slotSize
	scratchSize = slotSize + 8
)

// Load compiles and instantiates a guest module. ctx is used for every
// later guest call.
func Load(ctx context.Context, wasm []byte, cfg *Config) (*Guest, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compile guest: %w", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(cfg.Name))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate guest: %w", err)
	}

	g := &Guest{
		ctx:     ctx,
		runtime: rt,
		module:  mod,
		memory:  mod.Memory(),
		funcs:   make(map[string]api.Function, len(signatures)),
		log:     log,
	}
	if err := g.bind(); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	g.scratch, err = g.alloc(scratchSize)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	log.Debug("guest loaded",
		zap.String("name", cfg.Name),
		zap.Uint32("memory", g.memory.Size()))
	return g, nil
}

func (g *Guest) bind() error {
	if g.memory == nil {
		return fmt.Errorf("guest exports no memory")
	}
	for _, sig := range signatures {
		fn := g.module.ExportedFunction(sig.name)
		if fn == nil {
			return fmt.Errorf("guest missing export %q", sig.name)
		}
		def := fn.Definition()
		if !sameTypes(def.ParamTypes(), sig.params) || !sameTypes(def.ResultTypes(), sig.results) {
			return fmt.Errorf("guest export %q has signature %v -> %v, want %v -> %v",
				sig.name, typeNames(def.ParamTypes()), typeNames(def.ResultTypes()),
				typeNames(sig.params), typeNames(sig.results))
		}
		g.funcs[sig.name] = fn
	}

	if fn := g.module.ExportedFunction(ExportDealloc); fn != nil {
		def := fn.Definition()
		want := []api.ValueType{i32, i32}
		if !sameTypes(def.ParamTypes(), want) || len(def.ResultTypes()) != 0 {
			return fmt.Errorf("guest export %q has signature %v -> %v, want %v -> []",
				ExportDealloc, typeNames(def.ParamTypes()), typeNames(def.ResultTypes()), typeNames(want))
		}
		g.funcs[ExportDealloc] = fn
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func typeNames(types []api.ValueType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return names
}

// Memory exposes guest linear memory.
func (g *Guest) Memory() api.Memory {
	return g.memory
}

// Close releases the wazero runtime and the guest instance.
func (g *Guest) Close() error {
	return g.runtime.Close(g.ctx)
}

func (g *Guest) alloc(size uint32) (uint32, error) {
	res, err := g.funcs[ExportAlloc].Call(g.ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("guest alloc: %w", err)
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 && size > 0 {
		return 0, fmt.Errorf("guest alloc of %d bytes failed", size)
	}
	return ptr, nil
}

// writeStrings copies strs into the guest string buffer and returns a
// pointer and length pair per string, ready to pass as call parameters.
// The buffer is reused by the next call, so the guest must copy what it
// keeps.
func (g *Guest) writeStrings(strs ...string) ([]uint64, error) {
	var total uint32
	for _, s := range strs {
		total += uint32(len(s))
	}
	if err := g.reserve(total); err != nil {
		return nil, err
	}

	params := make([]uint64, 0, 2*len(strs))
	ptr := g.buf
	for _, s := range strs {
		if s == "" {
			params = append(params, 0, 0)
			continue
		}
		if !g.memory.WriteString(ptr, s) {
			return nil, fmt.Errorf("guest string at %d+%d out of range", ptr, len(s))
		}
		params = append(params, api.EncodeU32(ptr), api.EncodeU32(uint32(len(s))))
		ptr += uint32(len(s))
	}
	return params, nil
}

// reserve grows the string buffer to hold at least n bytes. The old buffer
// goes back to the guest when it exports dealloc.
func (g *Guest) reserve(n uint32) error {
	if n <= g.bufCap {
		return nil
	}
	size := max(n, 2*g.bufCap, minStringBuf)
	ptr, err := g.alloc(size)
	if err != nil {
		return err
	}

	if dealloc, ok := g.funcs[ExportDealloc]; ok && g.buf != 0 {
		if _, err := dealloc.Call(g.ctx, api.EncodeU32(g.buf), api.EncodeU32(g.bufCap)); err != nil {
			g.log.Warn("guest dealloc failed", zap.Uint32("ptr", g.buf), zap.Error(err))
		}
	}
	g.log.Debug("guest string buffer grown",
		zap.Uint32("from", g.bufCap),
		zap.Uint32("to", size))
	g.buf, g.bufCap = ptr, size
	return nil
}

// call clears the error slot, invokes export and returns the guest's
// failure message if one was written. The message is copied out of guest
// memory before returning.
func (g *Guest) call(export string, params ...uint64) ([]uint64, error) {
	g.memory.WriteUint64Le(g.scratch, 0)

	res, err := g.funcs[export].Call(g.ctx, params...)
	if err != nil {
		g.log.Warn("guest trapped", zap.String("export", export), zap.Error(err))
		return nil, fmt.Errorf("guest %s: %w", export, err)
	}

	msgPtr, _ := g.memory.ReadUint32Le(g.scratch)
	msgLen, _ := g.memory.ReadUint32Le(g.scratch + 4)
	if msgLen == 0 {
		return res, nil
	}
	raw, ok := g.memory.Read(msgPtr, msgLen)
	if !ok {
		return nil, &GuestError{Export: export, Message: fmt.Sprintf("error message at %d+%d out of range", msgPtr, msgLen)}
	}
	return nil, &GuestError{Export: export, Message: string(raw)}
}

// CreateView implements shardruntime.ViewFactory.
func (g *Guest) CreateView(_ any, kind string) (shardruntime.View, error) {
	params, err := g.writeStrings(kind)
	if err != nil {
		return nil, err
	}
	res, err := g.call(ExportCreateView, append(params, api.EncodeU32(g.scratch))...)
	if err != nil {
		return nil, err
	}
	id := api.DecodeU32(res[0])
	if id == 0 {
		return nil, &GuestError{Export: ExportCreateView, Message: fmt.Sprintf("no view for kind %q", kind)}
	}
	return &View{guest: g, ID: id, Kind: kind}, nil
}

// View is a guest side view identified by the id create_view returned.
type View struct {
	guest *Guest
	Kind  string
	ID    uint32
}

// SetFrame implements shardruntime.View.
func (v *View) SetFrame(f shardruntime.Frame) error {
	_, err := v.guest.call(ExportSetFrame,
		api.EncodeU32(v.ID),
		api.EncodeF32(f.X), api.EncodeF32(f.Y),
		api.EncodeF32(f.Width), api.EncodeF32(f.Height),
		api.EncodeU32(v.guest.scratch))
	return err
}

// SetProp implements shardruntime.View.
func (v *View) SetProp(key, value string) error {
	strs, err := v.guest.writeStrings(key, value)
	if err != nil {
		return err
	}
	params := append([]uint64{api.EncodeU32(v.ID)}, strs...)
	_, err = v.guest.call(ExportSetProp, append(params, api.EncodeU32(v.guest.scratch))...)
	return err
}

// AddChild implements shardruntime.View.
func (v *View) AddChild(child shardruntime.View) error {
	c, ok := child.(*View)
	if !ok || c.guest != v.guest {
		return fmt.Errorf("child %T does not belong to this guest", child)
	}
	_, err := v.guest.call(ExportAddChild,
		api.EncodeU32(v.ID), api.EncodeU32(c.ID),
		api.EncodeU32(v.guest.scratch))
	return err
}

// Measure implements shardruntime.View. Unbounded axes reach the guest as
// NaN.
func (v *View) Measure(c shardruntime.Size) (shardruntime.Size, error) {
	out := v.guest.scratch + measureOut
	_, err := v.guest.call(ExportMeasure,
		api.EncodeU32(v.ID),
		api.EncodeF32(c.Width), api.EncodeF32(c.Height),
		api.EncodeU32(out),
		api.EncodeU32(v.guest.scratch))
	if err != nil {
		return shardruntime.Size{}, err
	}
	w, _ := v.guest.memory.ReadFloat32Le(out)
	h, _ := v.guest.memory.ReadFloat32Le(out + 4)
	return shardruntime.Size{Width: w, Height: h}, nil
}

// Release implements shardruntime.Releaser.
func (v *View) Release() error {
	_, err := v.guest.funcs[ExportReleaseView].Call(v.guest.ctx, api.EncodeU32(v.ID))
	if err != nil {
		return fmt.Errorf("guest %s: %w", ExportReleaseView, err)
	}
	return nil
}
