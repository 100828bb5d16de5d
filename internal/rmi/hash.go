package rmi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var (
	hashCacheMu sync.RWMutex
	hashCache   = map[reflect.Type]string{}
)

// HashInterface computes a stable hex digest of an interface type: the
// interface's name, followed by each exported method's name and formal
// signature, in sorted method-name order. Two interfaces whose digests
// match are considered wire-compatible. The digest is computed once per
// reflect.Type and cached.
func HashInterface(ifaceType reflect.Type) string {
	if ifaceType.Kind() != reflect.Interface {
		panic(fmt.Sprintf("rmi: HashInterface called on non-interface type %s", ifaceType))
	}

	hashCacheMu.RLock()
	if h, ok := hashCache[ifaceType]; ok {
		hashCacheMu.RUnlock()
		return h
	}
	hashCacheMu.RUnlock()

	h := sha256.New()
	h.Write([]byte(ifaceType.Name()))

	n := ifaceType.NumMethod()
	methods := make([]reflect.Method, n)
	for i := 0; i < n; i++ {
		methods[i] = ifaceType.Method(i)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })

	for _, m := range methods {
		h.Write([]byte(m.Name))
		h.Write([]byte(methodSignature(m.Type)))
	}

	digest := hex.EncodeToString(h.Sum(nil))

	hashCacheMu.Lock()
	hashCache[ifaceType] = digest
	hashCacheMu.Unlock()

	return digest
}

// methodSignature renders a method's formal parameter list and return
// types as stable text, e.g. "(string, int64) (bool, error)".
func methodSignature(t reflect.Type) string {
	in := make([]string, t.NumIn())
	for i := range in {
		in[i] = t.In(i).String()
	}
	out := make([]string, t.NumOut())
	for i := range out {
		out[i] = t.Out(i).String()
	}

	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(strings.Join(in, ", "))
	b.WriteByte(')')
	if len(out) > 0 {
		b.WriteByte(' ')
		if len(out) > 1 {
			b.WriteByte('(')
		}
		b.WriteString(strings.Join(out, ", "))
		if len(out) > 1 {
			b.WriteByte(')')
		}
	}
	return b.String()
}
