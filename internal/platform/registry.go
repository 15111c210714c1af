package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var globalRegistry = newRegistry()

type registry struct {
	mu      sync.RWMutex
	modules map[Tag]Descriptor
}

func newRegistry() *registry {
	return &registry{modules: make(map[Tag]Descriptor)}
}

// Register 将平台描述加入全局注册表，重复标签会返回错误。
func Register(desc Descriptor) error {
	return globalRegistry.register(desc)
}

// MustRegister 在注册失败时 panic，适合平台模块 init() 中调用。
func MustRegister(desc Descriptor) {
	if err := Register(desc); err != nil {
		panic(err)
	}
}

// Resolve 返回指定标签的平台描述。
func Resolve(tag Tag) (Descriptor, bool) {
	return globalRegistry.resolve(tag)
}

// List 返回按标签排序的平台描述列表。
func List() []Descriptor {
	return globalRegistry.list()
}

// Tags 返回所有已注册平台的标签，供调试或诊断使用。
func Tags() []Tag {
	items := List()
	result := make([]Tag, len(items))
	for i, desc := range items {
		result[i] = desc.Tag
	}
	return result
}

func (r *registry) register(desc Descriptor) error {
	tag := Tag(strings.ToLower(strings.TrimSpace(string(desc.Tag))))
	if tag == "" {
		return fmt.Errorf("platform tag is required")
	}
	if len(desc.LinkPrefixes) == 0 {
		return fmt.Errorf("platform %s declares no link prefixes", tag)
	}
	desc.Tag = tag

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[tag]; exists {
		return fmt.Errorf("platform %s already registered", tag)
	}
	r.modules[tag] = desc
	return nil
}

func (r *registry) resolve(tag Tag) (Descriptor, bool) {
	if tag == "" {
		return Descriptor{}, false
	}
	normalized := Tag(strings.ToLower(strings.TrimSpace(string(tag))))

	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.modules[normalized]
	return desc, ok
}

func (r *registry) list() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.modules) == 0 {
		return nil
	}

	tags := make([]string, 0, len(r.modules))
	for tag := range r.modules {
		tags = append(tags, string(tag))
	}
	sort.Strings(tags)

	result := make([]Descriptor, 0, len(tags))
	for _, tag := range tags {
		result = append(result, r.modules[Tag(tag)])
	}
	return result
}
