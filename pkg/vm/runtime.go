package vm

import (
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/nooga/mdr/pkg/config"
)

// counters are the engine-wide statistics reported by Stats.
type counters struct {
	familyCache CacheStats
	lastAccess  CacheStats
	containers  CacheStats

	familiesCreated atomic.Uint64
	shapesCreated   atomic.Uint64
	propagations    atomic.Uint64
	specializations atomic.Uint64
	blacklisted     atomic.Uint64
	calls           atomic.Uint64

	propagationNanos atomic.Int64
	specializeNanos  atomic.Int64
}

// Runtime is one engine instance: the field table, the default prototypes
// and their families, and the caches shared by every object it creates.
// A Runtime is not safe for concurrent mutation.
type Runtime struct {
	ID uuid.UUID

	config *config.Config
	log    commonlog.Logger
	fields *FieldTable

	shapeSeq      int
	cachesEnabled bool
	lastAccess    LastAccessCache
	containers    ContainerCache
	counters      counters

	// Family of objects without a prototype.
	RootFamily *ShapeFamily

	// Built-in prototypes
	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	StringPrototype   *Object
	BooleanPrototype  *Object
	NumberPrototype   *Object
	RegExpPrototype   *Object

	ObjectFamily   *ShapeFamily
	FunctionFamily *ShapeFamily
	ArrayFamily    *ShapeFamily
	StringFamily   *ShapeFamily
	BooleanFamily  *ShapeFamily
	NumberFamily   *ShapeFamily
	RegExpFamily   *ShapeFamily

	UndefinedObject *Object
	NullObject      *Object

	// Predefined field ids
	ValueOfFieldID     int
	ToStringFieldID    int
	PrototypeFieldID   int
	LengthFieldID      int
	ConstructorFieldID int
	LastIndexFieldID   int
}

// NewRuntime builds a runtime with its default prototypes. A nil cfg uses
// config.Default().
func NewRuntime(cfg *config.Config) *Runtime {
	if cfg == nil {
		cfg = config.Default()
	}
	rt := &Runtime{
		ID:            uuid.New(),
		config:        cfg,
		log:           commonlog.GetLogger("mdr.vm"),
		fields:        NewFieldTable(64),
		cachesEnabled: cfg.EnableInlineCaches,
	}
	rt.lastAccess.stats = rt.statsFor(&rt.counters.lastAccess)
	rt.containers.stats = rt.statsFor(&rt.counters.containers)

	rt.ValueOfFieldID = rt.GetFieldID("valueOf")
	rt.ToStringFieldID = rt.GetFieldID("toString")
	rt.PrototypeFieldID = rt.GetFieldID("prototype")
	rt.LengthFieldID = rt.GetFieldID("length")
	rt.ConstructorFieldID = rt.GetFieldID("constructor")
	rt.LastIndexFieldID = rt.GetFieldID("lastIndex")

	rt.RootFamily = newShapeFamily(rt, nil, "Object")
	rt.UndefinedObject = newObject(rt.RootFamily.root, KindUndefined, 0)
	rt.NullObject = newObject(rt.RootFamily.root, KindNull, 0)

	rt.ObjectPrototype = newObject(rt.RootFamily.root, KindPlain, 0)
	rt.ObjectFamily = rt.newFamily(rt.ObjectPrototype, "Object")

	rt.FunctionPrototype = rt.NewObject()
	rt.ArrayPrototype = rt.NewObject()
	rt.StringPrototype = rt.NewObject()
	rt.BooleanPrototype = rt.NewObject()
	rt.NumberPrototype = rt.NewObject()
	rt.RegExpPrototype = rt.NewObject()

	rt.FunctionFamily = rt.newFamily(rt.FunctionPrototype, "Function")
	rt.ArrayFamily = rt.newFamily(rt.ArrayPrototype, "Array")
	rt.StringFamily = rt.newFamily(rt.StringPrototype, "String")
	rt.BooleanFamily = rt.newFamily(rt.BooleanPrototype, "Boolean")
	rt.NumberFamily = rt.newFamily(rt.NumberPrototype, "Number")
	rt.RegExpFamily = rt.newFamily(rt.RegExpPrototype, "RegExp")

	rt.initPrototypes()
	rt.log.Infof("runtime %s started (inline caches: %t)", rt.ID, rt.cachesEnabled)
	return rt
}

func (rt *Runtime) Config() *config.Config { return rt.config }
func (rt *Runtime) Fields() *FieldTable    { return rt.fields }

// statsFor returns s, or nil when counters are disabled.
func (rt *Runtime) statsFor(s *CacheStats) *CacheStats {
	if !rt.config.EnableCounters {
		return nil
	}
	return s
}

func (rt *Runtime) nextShapeID() int {
	id := rt.shapeSeq
	rt.shapeSeq++
	rt.counters.shapesCreated.Add(1)
	return id
}

// GetFieldID interns name.
func (rt *Runtime) GetFieldID(name string) int { return rt.fields.Intern(name) }

func (rt *Runtime) FieldName(id int) string { return rt.fields.Name(id) }

// FamilyOfPrototype returns the family of objects whose prototype is proto,
// creating it on first use. A nil proto selects the root family.
func (rt *Runtime) FamilyOfPrototype(proto *Object) *ShapeFamily {
	if proto == nil {
		return rt.RootFamily
	}
	if proto.subFamily != nil {
		return proto.subFamily
	}
	return rt.newFamily(proto, proto.ClassName())
}

func (rt *Runtime) newFamily(proto *Object, name string) *ShapeFamily {
	f := newShapeFamily(rt, proto, name)
	proto.shape.family.AddChild(f)
	proto.subFamily = f
	rt.log.Debugf("family %s created at level %d", name, f.level)
	return f
}

// CachesEnabled reports whether lookups go through the inline caches.
func (rt *Runtime) CachesEnabled() bool { return rt.cachesEnabled }

// SetCachesEnabled switches the inline caches on or off. Turning them off
// clears them so that nothing stale survives a later re-enable.
func (rt *Runtime) SetCachesEnabled(enabled bool) {
	if !enabled {
		rt.ClearCaches()
	}
	rt.cachesEnabled = enabled
}

// ClearCaches empties the runtime caches and the property cache of every
// family reachable from the root family.
func (rt *Runtime) ClearCaches() {
	rt.lastAccess.Clear()
	rt.containers.Clear()
	var clearFamily func(f *ShapeFamily)
	clearFamily = func(f *ShapeFamily) {
		f.cache.Clear()
		for _, child := range f.Children() {
			clearFamily(child)
		}
	}
	clearFamily(rt.RootFamily)
}

// Shutdown writes the stats report when profiling is enabled.
func (rt *Runtime) Shutdown() error {
	defer rt.log.Infof("runtime %s stopped", rt.ID)
	if !rt.config.ProfileStats {
		return nil
	}
	path := rt.config.StatsPath()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteStats(f, rt.Stats(), rt.config.StatsFormat); err != nil {
		return err
	}
	rt.log.Infof("stats written to %s", path)
	return nil
}

// --- Object constructors ---

// NewObject creates an empty object inheriting from ObjectPrototype.
func (rt *Runtime) NewObject() *Object {
	return newObject(rt.ObjectFamily.root, KindPlain, 0)
}

// NewObjectWithPrototype creates an empty object inheriting from proto, or
// from nothing when proto is nil.
func (rt *Runtime) NewObjectWithPrototype(proto *Object) *Object {
	return newObject(rt.FamilyOfPrototype(proto).root, KindPlain, 0)
}

func (rt *Runtime) NewBoolean(b bool) *Object {
	o := newObject(rt.BooleanFamily.root, KindBoolean, 0)
	o.primitive = BooleanValue(b)
	return o
}

func (rt *Runtime) NewNumber(f float64) *Object {
	o := newObject(rt.NumberFamily.root, KindNumber, 0)
	o.primitive = DoubleValue(f)
	return o
}

// ToObject wraps primitives in their prototype wrapper. Objects come back
// unchanged; Undefined and Null map to the runtime's singleton objects.
func (rt *Runtime) ToObject(v Value) *Object {
	switch {
	case v.IsUndefined():
		return rt.UndefinedObject
	case v.IsNull():
		return rt.NullObject
	case v.IsObject():
		return v.AsObject()
	case v.IsBoolean():
		return rt.NewBoolean(v.AsBoolean())
	case v.IsString():
		return rt.NewString(v.AsString())
	case v.IsNumber():
		return rt.NewNumber(v.ToDouble())
	}
	return rt.UndefinedObject
}

// NewPropertyObject wraps p so it can be stored in an accessor field.
func (rt *Runtime) NewPropertyObject(p *Property) *Object {
	o := newObject(rt.RootFamily.root, KindProperty, 0)
	o.prop = p
	return o
}
