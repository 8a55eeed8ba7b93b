package vm

import (
	"github.com/cfgs-lang/cfgs/bytecode"
)

// ---------------------------------------------------------------------------
// Class: immutable descriptor built from the program's class table
// ---------------------------------------------------------------------------

// Class describes a class declaration. Member sets are fixed at load time;
// only the static instance's fields change at runtime.
type Class struct {
	Name string
	Base *Class

	fields        map[string]bool
	statics       map[string]bool
	methods       map[string]string // member -> function name
	staticMethods map[string]string

	static *Object // created on first static access
}

type memberKind uint8

const (
	memberNone memberKind = iota
	memberField
	memberMethod
	memberStatic
	memberStaticMethod
)

func newClass(info bytecode.ClassInfo) *Class {
	c := &Class{
		Name:          info.Name,
		fields:        make(map[string]bool, len(info.Fields)),
		statics:       make(map[string]bool, len(info.Statics)),
		methods:       info.Methods,
		staticMethods: info.StaticMethods,
	}
	for _, f := range info.Fields {
		c.fields[f] = true
	}
	for _, s := range info.Statics {
		c.statics[s] = true
	}
	return c
}

// lookup resolves a member name through the base chain. The first class that
// declares the name wins; owner is that class.
func (c *Class) lookup(name string) (owner *Class, kind memberKind, fn string) {
	for cur := c; cur != nil; cur = cur.Base {
		switch {
		case cur.fields[name]:
			return cur, memberField, ""
		case cur.methods[name] != "":
			return cur, memberMethod, cur.methods[name]
		case cur.statics[name]:
			return cur, memberStatic, ""
		case cur.staticMethods[name] != "":
			return cur, memberStaticMethod, cur.staticMethods[name]
		}
	}
	return nil, memberNone, ""
}

// IsSubclassOf returns true if c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for cur := c; cur != nil; cur = cur.Base {
		if cur == other {
			return true
		}
	}
	return false
}

func (c *Class) staticInstance() *Object {
	if c.static == nil {
		c.static = &Object{Class: c, Fields: make(map[string]Value)}
	}
	return c.static
}

// Object is the field bag behind both class instances and static instances.
type Object struct {
	Class  *Class
	Fields map[string]Value
}

// NewInstance allocates an instance with every field unset (null).
func (c *Class) NewInstance() *Object {
	return &Object{Class: c, Fields: make(map[string]Value)}
}

// ---------------------------------------------------------------------------
// Member access
// ---------------------------------------------------------------------------

func (it *Interpreter) instanceMember(obj *Object, name string) (Value, error) {
	owner, kind, fn := obj.Class.lookup(name)
	switch kind {
	case memberField:
		return obj.Fields[name], nil
	case memberMethod:
		m, err := it.functionClosure(fn)
		if err != nil {
			return Null, err
		}
		return FromBoundMethod(&BoundMethod{Method: m, Receiver: FromInstance(obj)}), nil
	case memberStatic, memberStaticMethod:
		return it.staticMember(owner, name)
	}
	return Null, Errorf(MemberError, "%s has no member '%s'", obj.Class.Name, name)
}

func (it *Interpreter) setInstanceMember(obj *Object, name string, v Value) error {
	owner, kind, _ := obj.Class.lookup(name)
	switch kind {
	case memberField:
		obj.Fields[name] = v
		return nil
	case memberStatic:
		owner.staticInstance().Fields[name] = v
		return nil
	case memberMethod, memberStaticMethod:
		return Errorf(MemberError, "cannot assign to method '%s' of %s", name, obj.Class.Name)
	}
	return Errorf(MemberError, "%s has no member '%s'", obj.Class.Name, name)
}

// staticMember reads a static field or static method through class c.
// Static methods are bound to the declaring class's static instance.
func (it *Interpreter) staticMember(c *Class, name string) (Value, error) {
	owner, kind, fn := c.lookup(name)
	switch kind {
	case memberStatic:
		return owner.staticInstance().Fields[name], nil
	case memberStaticMethod:
		m, err := it.functionClosure(fn)
		if err != nil {
			return Null, err
		}
		return FromBoundMethod(&BoundMethod{Method: m, Receiver: FromStatic(owner.staticInstance())}), nil
	case memberField, memberMethod:
		return Null, Errorf(MemberError, "'%s' is an instance member of %s", name, owner.Name)
	}
	return Null, Errorf(MemberError, "%s has no static member '%s'", c.Name, name)
}

func (it *Interpreter) setStaticMember(c *Class, name string, v Value) error {
	owner, kind, _ := c.lookup(name)
	switch kind {
	case memberStatic:
		owner.staticInstance().Fields[name] = v
		return nil
	case memberStaticMethod:
		return Errorf(MemberError, "cannot assign to static method '%s' of %s", name, owner.Name)
	case memberField, memberMethod:
		return Errorf(MemberError, "'%s' is an instance member of %s", name, owner.Name)
	}
	return Errorf(MemberError, "%s has no static member '%s'", c.Name, name)
}

// loadMember implements LOAD_MEMBER for every receiver kind.
func (it *Interpreter) loadMember(recv Value, name string) (Value, error) {
	switch recv.kind {
	case KindInstance:
		return it.instanceMember(recv.Object(), name)
	case KindStatic:
		return it.staticMember(recv.Object().Class, name)
	case KindClass:
		return it.staticMember(recv.Class(), name)
	case KindBoundType:
		return it.typeMember(recv.BoundType(), name)
	case KindException:
		if v, ok := recv.Exception().property(name); ok {
			return v, nil
		}
		return Null, Errorf(MemberError, "exception has no member '%s'", name)
	case KindDict:
		if m := lookupIntrinsic(KindDict, name); m != nil {
			return FromIntrinsicBound(&IntrinsicBound{Method: m, Receiver: recv}), nil
		}
		v, _ := recv.Dict().Get(FromString(name))
		return v, nil
	}
	if m := lookupIntrinsic(recv.kind, name); m != nil {
		return FromIntrinsicBound(&IntrinsicBound{Method: m, Receiver: recv}), nil
	}
	return Null, Errorf(MemberError, "%s has no member '%s'", recv.kind, name)
}

// storeMember implements STORE_MEMBER.
func (it *Interpreter) storeMember(recv Value, name string, v Value) error {
	switch recv.kind {
	case KindInstance:
		return it.setInstanceMember(recv.Object(), name, v)
	case KindStatic:
		return it.setStaticMember(recv.Object().Class, name, v)
	case KindClass:
		return it.setStaticMember(recv.Class(), name, v)
	case KindBoundType:
		t := recv.BoundType()
		if t.Kind == TypeClass {
			return it.setStaticMember(it.classes[t.Name], name, v)
		}
		return Errorf(MemberError, "cannot assign to member '%s' of %s", name, t.Name)
	case KindDict:
		recv.Dict().Set(FromString(name), v)
		return nil
	}
	return Errorf(MemberError, "cannot assign to member '%s' of %s", name, recv.kind)
}

// typeMember resolves Type.member for classes, enums and built-in kinds.
func (it *Interpreter) typeMember(t *BoundType, name string) (Value, error) {
	switch t.Kind {
	case TypeClass:
		return it.staticMember(it.classes[t.Name], name)
	case TypeEnum:
		return it.enumMember(t.Name, name)
	}
	if m := lookupIntrinsic(t.kind, name); m != nil {
		return FromIntrinsic(m), nil
	}
	return Null, Errorf(MemberError, "%s has no member '%s'", t.Name, name)
}

// resolveType finds the class, enum or built-in kind named name.
func (it *Interpreter) resolveType(name string) (*BoundType, bool) {
	if _, ok := it.classes[name]; ok {
		return &BoundType{Name: name, Kind: TypeClass}, true
	}
	if _, ok := it.enums[name]; ok {
		return &BoundType{Name: name, Kind: TypeEnum}, true
	}
	if k, ok := builtinTypes[name]; ok {
		return &BoundType{Name: name, Kind: TypeBuiltin, kind: k}, true
	}
	return nil, false
}

var builtinTypes = map[string]Kind{
	"Array":  KindArray,
	"Dict":   KindDict,
	"String": KindString,
	"File":   KindFile,
}
