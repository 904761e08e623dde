package render

import (
	"github.com/vulkan-go/vulkan"

	"prism/src/present"
)

// ClearRecorder returns a recorder that rerecords the frame's command
// buffer with a single pass clearing color and depth. It is the
// smallest useful recorder; real renderers bind pipelines and draw
// inside the same pass.
func (ctx *Context) ClearRecorder(color [4]float32) present.Recorder {
	return present.RecorderFunc(func(cb present.CommandBuffer, frame present.FrameView) error {
		handle := cb.(*commandBuffer).handle
		fb := frame.Framebuffer.(*framebuffer).handle

		beginInfo := vulkan.CommandBufferBeginInfo{
			SType: vulkan.StructureTypeCommandBufferBeginInfo,
			Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
		}
		if res := vulkan.BeginCommandBuffer(handle, &beginInfo); IsError(res) {
			return classify(res)
		}

		clearValues := []vulkan.ClearValue{
			vulkan.NewClearValue(color[:]),
			vulkan.NewClearDepthStencil(1.0, 0),
		}
		passInfo := vulkan.RenderPassBeginInfo{
			SType:       vulkan.StructureTypeRenderPassBeginInfo,
			RenderPass:  ctx.renderPass,
			Framebuffer: fb,
			RenderArea: vulkan.Rect2D{
				Offset: vulkan.Offset2D{X: 0, Y: 0},
				Extent: vulkan.Extent2D{
					Width:  frame.Extent.Width,
					Height: frame.Extent.Height,
				},
			},
			ClearValueCount: uint32(len(clearValues)),
			PClearValues:    clearValues,
		}
		vulkan.CmdBeginRenderPass(handle, &passInfo, vulkan.SubpassContentsInline)
		vulkan.CmdEndRenderPass(handle)

		return classify(vulkan.EndCommandBuffer(handle))
	})
}
