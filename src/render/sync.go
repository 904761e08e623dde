package render

import (
	"time"

	"github.com/vulkan-go/vulkan"

	"prism/src/present"
)

// fence implements present.Fence over a vulkan fence.
type fence struct {
	device vulkan.Device
	handle vulkan.Fence
}

func (f *fence) Wait(timeout time.Duration) error {
	res := vulkan.WaitForFences(f.device, 1, []vulkan.Fence{f.handle}, vulkan.True, uint64(timeout.Nanoseconds()))
	switch res {
	case vulkan.Success:
		return nil
	case vulkan.Timeout:
		return present.ErrWaitTimeout
	default:
		return classify(res)
	}
}

func (f *fence) Reset() error {
	return classify(vulkan.ResetFences(f.device, 1, []vulkan.Fence{f.handle}))
}

func (f *fence) Signaled() bool {
	return vulkan.GetFenceStatus(f.device, f.handle) == vulkan.Success
}

func (f *fence) DestroyFence() {
	vulkan.DestroyFence(f.device, f.handle, nil)
}

// semaphore implements present.Semaphore.
type semaphore struct {
	device vulkan.Device
	handle vulkan.Semaphore
}

func (s *semaphore) DestroySemaphore() {
	vulkan.DestroySemaphore(s.device, s.handle, nil)
}

// commandBuffer implements present.CommandBuffer. The buffer is freed
// back to its pool on destroy; recording is the consumer's business.
type commandBuffer struct {
	device vulkan.Device
	pool   vulkan.CommandPool
	handle vulkan.CommandBuffer
}

// Handle exposes the underlying buffer to command recorders.
func (c *commandBuffer) Handle() vulkan.CommandBuffer {
	return c.handle
}

func (c *commandBuffer) DestroyCommandBuffer() {
	vulkan.FreeCommandBuffers(c.device, c.pool, 1, []vulkan.CommandBuffer{c.handle})
}
