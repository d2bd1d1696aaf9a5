package buffer

import (
	"slices"

	"github.com/fosdem/glupload/lib/caps"
)

const (
	AllocatorGLMemory = "GLMemory"
	AllocatorEGLImage = "EGLImage"

	MetaAPIVideo         = "VideoMeta"
	MetaAPITextureUpload = "TextureUploadMeta"
)

type AllocationParam struct {
	Allocator string
	Align     int
}

type PoolProposal struct {
	Pool       Pool
	Size       int
	MinBuffers int
	MaxBuffers int
}

type MetaProposal struct {
	API    string
	Params map[string]any
}

// AllocationQuery collects the allocators, pools and metas a consumer can
// work with. Entries are hints, a producer may pick any of them.
type AllocationQuery struct {
	Caps     *caps.Caps
	NeedPool bool

	Params []AllocationParam
	Pools  []PoolProposal
	Metas  []MetaProposal
}

func NewAllocationQuery(c *caps.Caps, needPool bool) *AllocationQuery {
	return &AllocationQuery{Caps: c, NeedPool: needPool}
}

func (q *AllocationQuery) AddAllocationParam(allocator string, align int) {
	q.Params = append(q.Params, AllocationParam{Allocator: allocator, Align: align})
}

func (q *AllocationQuery) AddPool(p Pool, size, minBuffers, maxBuffers int) {
	q.Pools = append(q.Pools, PoolProposal{Pool: p, Size: size, MinBuffers: minBuffers, MaxBuffers: maxBuffers})
}

func (q *AllocationQuery) AddMeta(api string, params map[string]any) {
	q.Metas = append(q.Metas, MetaProposal{API: api, Params: params})
}

func (q *AllocationQuery) HasAllocator(allocator string) bool {
	return slices.ContainsFunc(q.Params, func(p AllocationParam) bool { return p.Allocator == allocator })
}

func (q *AllocationQuery) Meta(api string) (MetaProposal, bool) {
	i := slices.IndexFunc(q.Metas, func(m MetaProposal) bool { return m.API == api })
	if i < 0 {
		return MetaProposal{}, false
	}
	return q.Metas[i], true
}
