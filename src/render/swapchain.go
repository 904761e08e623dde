package render

import (
	"errors"
	"math"

	"github.com/vulkan-go/vulkan"

	"prism/src/present"
)

// swapchain implements present.ChainHandle over a vulkan swapchain.
// It owns the per-image views too: the core drops them together with
// the handle, after framebuffers are gone and the queue has drained.
type swapchain struct {
	device vulkan.Device
	handle vulkan.Swapchain
	views  []vulkan.ImageView
}

func (sc *swapchain) DestroyChain() {
	for _, v := range sc.views {
		vulkan.DestroyImageView(sc.device, v, nil)
	}
	sc.views = nil
	vulkan.DestroySwapchain(sc.device, sc.handle, nil)
}

// imageView implements present.ImageView for one swapchain image. The
// view's lifetime belongs to the owning swapchain.
type imageView struct {
	handle vulkan.ImageView
}

// depthBuffer implements present.DepthBuffer: image, its backing
// memory and the attachment view.
type depthBuffer struct {
	device vulkan.Device
	image  vulkan.Image
	memory vulkan.DeviceMemory
	view   vulkan.ImageView
}

func (d *depthBuffer) DestroyDepth() {
	vulkan.DestroyImageView(d.device, d.view, nil)
	vulkan.DestroyImage(d.device, d.image, nil)
	vulkan.FreeMemory(d.device, d.memory, nil)
}

// framebuffer implements present.Framebuffer.
type framebuffer struct {
	device vulkan.Device
	handle vulkan.Framebuffer
}

func (f *framebuffer) DestroyFramebuffer() {
	vulkan.DestroyFramebuffer(f.device, f.handle, nil)
}

// CreateChain negotiates a displayable-image chain with the surface at
// the requested extent. A non-nil old handle is linked in so the driver
// can carry presentation state across the recreation; ownership of the
// old chain stays with the caller.
func (ctx *Context) CreateChain(extent present.Extent, old present.ChainHandle) (*present.ChainInfo, error) {
	var caps vulkan.SurfaceCapabilities
	if res := vulkan.GetPhysicalDeviceSurfaceCapabilities(ctx.gpu, ctx.surface, &caps); IsError(res) {
		return nil, classify(res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	chainExtent := chooseExtent(caps, extent)
	if chainExtent.Width == 0 || chainExtent.Height == 0 {
		return nil, errors.New("render: surface reports zero-area extent")
	}

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	chainInfo := vulkan.SwapchainCreateInfo{
		SType:           vulkan.StructureTypeSwapchainCreateInfo,
		Surface:         ctx.surface,
		MinImageCount:   imageCount,
		ImageFormat:     ctx.colorFormat,
		ImageColorSpace: ctx.colorSpace,
		ImageExtent: vulkan.Extent2D{
			Width:  chainExtent.Width,
			Height: chainExtent.Height,
		},
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		ImageSharingMode: vulkan.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      ctx.choosePresentMode(),
		Clipped:          vulkan.True,
	}
	if ctx.graphicsFamily != ctx.presentFamily {
		chainInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		chainInfo.QueueFamilyIndexCount = 2
		chainInfo.PQueueFamilyIndices = []uint32{ctx.graphicsFamily, ctx.presentFamily}
	}
	if old != nil {
		chainInfo.OldSwapchain = old.(*swapchain).handle
	}

	var handle vulkan.Swapchain
	if res := vulkan.CreateSwapchain(ctx.device, &chainInfo, nil, &handle); IsError(res) {
		return nil, classify(res)
	}
	sc := &swapchain{device: ctx.device, handle: handle}

	var count uint32
	vulkan.GetSwapchainImages(ctx.device, handle, &count, nil)
	images := make([]vulkan.Image, count)
	if res := vulkan.GetSwapchainImages(ctx.device, handle, &count, images); IsError(res) {
		sc.DestroyChain()
		return nil, classify(res)
	}

	views := make([]present.ImageView, 0, count)
	for _, img := range images {
		view, err := ctx.createImageView(img, ctx.colorFormat,
			vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit))
		if err != nil {
			sc.DestroyChain()
			return nil, err
		}
		sc.views = append(sc.views, view)
		views = append(views, &imageView{handle: view})
	}

	return &present.ChainInfo{
		Handle: sc,
		Views:  views,
		Extent: chainExtent,
	}, nil
}

// chooseExtent resolves the chain size against surface capabilities: a
// fixed CurrentExtent wins, otherwise the requested size is clamped to
// the surface's supported range.
func chooseExtent(caps vulkan.SurfaceCapabilities, want present.Extent) present.Extent {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return present.Extent{
			Width:  caps.CurrentExtent.Width,
			Height: caps.CurrentExtent.Height,
		}
	}
	return want.Clamp(
		present.Extent{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		present.Extent{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	)
}

// choosePresentMode picks FIFO under vsync (always available), and the
// lowest-latency mode the surface offers otherwise.
func (ctx *Context) choosePresentMode() vulkan.PresentMode {
	if ctx.vsync {
		return vulkan.PresentModeFifo
	}
	var count uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(ctx.gpu, ctx.surface, &count, nil)
	modes := make([]vulkan.PresentMode, count)
	vulkan.GetPhysicalDeviceSurfacePresentModes(ctx.gpu, ctx.surface, &count, modes)

	best := vulkan.PresentModeFifo
	for _, mode := range modes {
		if mode == vulkan.PresentModeMailbox {
			return mode
		}
		if mode == vulkan.PresentModeImmediate {
			best = mode
		}
	}
	return best
}

// CreateDepth allocates the depth attachment sized to the chain.
func (ctx *Context) CreateDepth(extent present.Extent) (present.DepthBuffer, error) {
	imageInfo := vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Format:    ctx.depthFormat,
		Extent: vulkan.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vulkan.SampleCount1Bit,
		Tiling:        vulkan.ImageTilingOptimal,
		Usage:         vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
		SharingMode:   vulkan.SharingModeExclusive,
		InitialLayout: vulkan.ImageLayoutUndefined,
	}
	var image vulkan.Image
	if res := vulkan.CreateImage(ctx.device, &imageInfo, nil, &image); IsError(res) {
		return nil, classify(res)
	}

	var memReqs vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(ctx.device, image, &memReqs)
	memReqs.Deref()

	memType, err := ctx.findMemoryType(memReqs.MemoryTypeBits,
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vulkan.DestroyImage(ctx.device, image, nil)
		return nil, err
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}
	var memory vulkan.DeviceMemory
	if res := vulkan.AllocateMemory(ctx.device, &allocInfo, nil, &memory); IsError(res) {
		vulkan.DestroyImage(ctx.device, image, nil)
		return nil, classify(res)
	}
	if res := vulkan.BindImageMemory(ctx.device, image, memory, 0); IsError(res) {
		vulkan.FreeMemory(ctx.device, memory, nil)
		vulkan.DestroyImage(ctx.device, image, nil)
		return nil, classify(res)
	}

	view, err := ctx.createImageView(image, ctx.depthFormat,
		vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit))
	if err != nil {
		vulkan.FreeMemory(ctx.device, memory, nil)
		vulkan.DestroyImage(ctx.device, image, nil)
		return nil, err
	}
	return &depthBuffer{device: ctx.device, image: image, memory: memory, view: view}, nil
}

// CreateFramebuffer binds one color view plus the shared depth view to
// the context's render pass.
func (ctx *Context) CreateFramebuffer(view present.ImageView, depth present.DepthBuffer, extent present.Extent) (present.Framebuffer, error) {
	attachments := []vulkan.ImageView{
		view.(*imageView).handle,
		depth.(*depthBuffer).view,
	}
	fbInfo := vulkan.FramebufferCreateInfo{
		SType:           vulkan.StructureTypeFramebufferCreateInfo,
		RenderPass:      ctx.renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	var handle vulkan.Framebuffer
	if res := vulkan.CreateFramebuffer(ctx.device, &fbInfo, nil, &handle); IsError(res) {
		return nil, classify(res)
	}
	return &framebuffer{device: ctx.device, handle: handle}, nil
}

func (ctx *Context) createImageView(image vulkan.Image, format vulkan.Format, aspect vulkan.ImageAspectFlags) (vulkan.ImageView, error) {
	viewInfo := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vulkan.ImageView
	if res := vulkan.CreateImageView(ctx.device, &viewInfo, nil, &view); IsError(res) {
		return vulkan.NullImageView, classify(res)
	}
	return view, nil
}

func (ctx *Context) findMemoryType(typeBits uint32, properties vulkan.MemoryPropertyFlags) (uint32, error) {
	var memProps vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(ctx.gpu, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 &&
			memProps.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, errors.New("render: no memory type satisfies requirements")
}
