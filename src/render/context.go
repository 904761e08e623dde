package render

import (
	"errors"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"

	"prism/src/present"
)

// Context owns the Vulkan instance, device and queues and implements
// the device collaborator the presentation core drives.
type Context struct {
	instance vulkan.Instance
	gpu      vulkan.PhysicalDevice
	device   vulkan.Device
	surface  vulkan.Surface

	graphicsFamily uint32
	presentFamily  uint32
	graphicsQueue  vulkan.Queue
	presentQueue   vulkan.Queue

	cmdPool     vulkan.CommandPool
	renderPass  vulkan.RenderPass
	colorFormat vulkan.Format
	colorSpace  vulkan.ColorSpace
	depthFormat vulkan.Format
	vsync       bool
}

var requiredDeviceExtensions = []string{
	"VK_KHR_swapchain\x00",
}

// NewContext brings up Vulkan against the given window: instance,
// surface, a physical device with graphics and present queues, the
// logical device, a command pool and the render pass every swapchain
// framebuffer targets.
func NewContext(win *Window, appName string, vsync bool) (ctx *Context, err error) {
	defer CheckError(&err)

	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	OrPanic(vulkan.Init())

	ctx = &Context{vsync: vsync}

	extensions := win.RequiredExtensions()
	instanceInfo := vulkan.InstanceCreateInfo{
		SType: vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vulkan.ApplicationInfo{
			SType:              vulkan.StructureTypeApplicationInfo,
			PApplicationName:   appName + "\x00",
			ApplicationVersion: vulkan.MakeVersion(1, 0, 0),
			PEngineName:        "prism\x00",
			EngineVersion:      vulkan.MakeVersion(1, 0, 0),
			ApiVersion:         vulkan.ApiVersion10,
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	var instance vulkan.Instance
	OrPanic(NewError(vulkan.CreateInstance(&instanceInfo, nil, &instance)))
	ctx.instance = instance
	OrPanic(vulkan.InitInstance(instance))

	ctx.surface, err = win.CreateSurface(instance)
	OrPanic(err, ctx.Destroy)

	OrPanic(ctx.pickPhysicalDevice(), ctx.Destroy)
	OrPanic(ctx.createDevice(), ctx.Destroy)
	OrPanic(ctx.createCommandPool(), ctx.Destroy)
	OrPanic(ctx.chooseFormats(), ctx.Destroy)
	OrPanic(ctx.createRenderPass(), ctx.Destroy)
	return ctx, nil
}

func (ctx *Context) pickPhysicalDevice() error {
	var count uint32
	if res := vulkan.EnumeratePhysicalDevices(ctx.instance, &count, nil); IsError(res) {
		return NewError(res)
	}
	if count == 0 {
		return errors.New("render: no GPU with vulkan support found")
	}
	gpus := make([]vulkan.PhysicalDevice, count)
	if res := vulkan.EnumeratePhysicalDevices(ctx.instance, &count, gpus); IsError(res) {
		return NewError(res)
	}
	for _, gpu := range gpus {
		graphics, presentIdx, ok := ctx.findQueueFamilies(gpu)
		if ok {
			ctx.gpu = gpu
			ctx.graphicsFamily = graphics
			ctx.presentFamily = presentIdx
			return nil
		}
	}
	return errors.New("render: no GPU exposes graphics and present queues for this surface")
}

func (ctx *Context) findQueueFamilies(gpu vulkan.PhysicalDevice) (graphics, presentIdx uint32, ok bool) {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	families := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, families)

	var haveGraphics, havePresent bool
	for i := range families {
		families[i].Deref()
		if !haveGraphics && families[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 {
			graphics = uint32(i)
			haveGraphics = true
		}
		var supported vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), ctx.surface, &supported)
		if !havePresent && supported.B() {
			presentIdx = uint32(i)
			havePresent = true
		}
	}
	return graphics, presentIdx, haveGraphics && havePresent
}

func (ctx *Context) createDevice() error {
	priorities := []float32{1.0}
	queueInfos := []vulkan.DeviceQueueCreateInfo{{
		SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: ctx.graphicsFamily,
		QueueCount:       1,
		PQueuePriorities: priorities,
	}}
	if ctx.presentFamily != ctx.graphicsFamily {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: ctx.presentFamily,
			QueueCount:       1,
			PQueuePriorities: priorities,
		})
	}
	deviceInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredDeviceExtensions)),
		PpEnabledExtensionNames: requiredDeviceExtensions,
	}
	var device vulkan.Device
	if res := vulkan.CreateDevice(ctx.gpu, &deviceInfo, nil, &device); IsError(res) {
		return NewError(res)
	}
	ctx.device = device

	var graphicsQueue, presentQueue vulkan.Queue
	vulkan.GetDeviceQueue(ctx.device, ctx.graphicsFamily, 0, &graphicsQueue)
	vulkan.GetDeviceQueue(ctx.device, ctx.presentFamily, 0, &presentQueue)
	ctx.graphicsQueue = graphicsQueue
	ctx.presentQueue = presentQueue
	return nil
}

func (ctx *Context) createCommandPool() error {
	poolInfo := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: ctx.graphicsFamily,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vulkan.CommandPool
	if res := vulkan.CreateCommandPool(ctx.device, &poolInfo, nil, &pool); IsError(res) {
		return NewError(res)
	}
	ctx.cmdPool = pool
	return nil
}

func (ctx *Context) chooseFormats() error {
	format, colorSpace, err := ctx.chooseSurfaceFormat()
	if err != nil {
		return err
	}
	ctx.colorFormat = format
	ctx.colorSpace = colorSpace

	depth, err := ctx.findSupportedFormat(
		[]vulkan.Format{vulkan.FormatD32Sfloat, vulkan.FormatD32SfloatS8Uint, vulkan.FormatD24UnormS8Uint},
		vulkan.ImageTilingOptimal,
		vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit),
	)
	if err != nil {
		return err
	}
	ctx.depthFormat = depth
	return nil
}

func (ctx *Context) chooseSurfaceFormat() (vulkan.Format, vulkan.ColorSpace, error) {
	var count uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(ctx.gpu, ctx.surface, &count, nil)
	if count == 0 {
		return 0, 0, errors.New("render: surface reports no pixel formats")
	}
	formats := make([]vulkan.SurfaceFormat, count)
	vulkan.GetPhysicalDeviceSurfaceFormats(ctx.gpu, ctx.surface, &count, formats)

	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vulkan.FormatB8g8r8a8Srgb &&
			formats[i].ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return formats[i].Format, formats[i].ColorSpace, nil
		}
	}
	if formats[0].Format == vulkan.FormatUndefined {
		return vulkan.FormatB8g8r8a8Srgb, vulkan.ColorSpaceSrgbNonlinear, nil
	}
	return formats[0].Format, formats[0].ColorSpace, nil
}

func (ctx *Context) findSupportedFormat(candidates []vulkan.Format, tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error) {
	for _, format := range candidates {
		var props vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(ctx.gpu, format, &props)
		props.Deref()
		if tiling == vulkan.ImageTilingOptimal && props.OptimalTilingFeatures&features == features {
			return format, nil
		}
		if tiling == vulkan.ImageTilingLinear && props.LinearTilingFeatures&features == features {
			return format, nil
		}
	}
	return 0, errors.New("render: no supported format among candidates")
}

// createRenderPass builds the single pass all swapchain framebuffers
// target: one color attachment ending in present-src layout, one depth
// attachment.
func (ctx *Context) createRenderPass() error {
	attachments := []vulkan.AttachmentDescription{{
		Format:         ctx.colorFormat,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}, {
		Format:         ctx.depthFormat,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}}

	depthRef := vulkan.AttachmentReference{
		Attachment: 1,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vulkan.AttachmentReference{{
			Attachment: 0,
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		}},
		PDepthStencilAttachment: &depthRef,
	}
	dependency := vulkan.SubpassDependency{
		SrcSubpass: vulkan.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit |
			vulkan.PipelineStageEarlyFragmentTestsBit),
		DstStageMask: vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit |
			vulkan.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit |
			vulkan.AccessDepthStencilAttachmentWriteBit),
	}

	passInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}
	var pass vulkan.RenderPass
	if res := vulkan.CreateRenderPass(ctx.device, &passInfo, nil, &pass); IsError(res) {
		return NewError(res)
	}
	ctx.renderPass = pass
	return nil
}

// RenderPass exposes the pass for pipeline construction downstream.
func (ctx *Context) RenderPass() vulkan.RenderPass { return ctx.renderPass }

// Device exposes the logical device for downstream resource creation.
func (ctx *Context) Device() vulkan.Device { return ctx.device }

func (ctx *Context) NewSemaphore() (present.Semaphore, error) {
	info := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	var sem vulkan.Semaphore
	if res := vulkan.CreateSemaphore(ctx.device, &info, nil, &sem); IsError(res) {
		return nil, classify(res)
	}
	return &semaphore{device: ctx.device, handle: sem}, nil
}

func (ctx *Context) NewFence(signaled bool) (present.Fence, error) {
	info := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	var f vulkan.Fence
	if res := vulkan.CreateFence(ctx.device, &info, nil, &f); IsError(res) {
		return nil, classify(res)
	}
	return &fence{device: ctx.device, handle: f}, nil
}

func (ctx *Context) NewCommandBuffer() (present.CommandBuffer, error) {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        ctx.cmdPool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vulkan.CommandBuffer, 1)
	if res := vulkan.AllocateCommandBuffers(ctx.device, &allocInfo, buffers); IsError(res) {
		return nil, classify(res)
	}
	return &commandBuffer{device: ctx.device, pool: ctx.cmdPool, handle: buffers[0]}, nil
}

// Acquire reports an out-of-date surface as a stale outcome rather than
// an error. A suboptimal match still renders correctly this frame; the
// matching present result will flag it.
func (ctx *Context) Acquire(chain present.ChainHandle, ready present.Semaphore) (int, present.Outcome, error) {
	sc := chain.(*swapchain)
	var index uint32
	res := vulkan.AcquireNextImage(ctx.device, sc.handle, vulkan.MaxUint64,
		ready.(*semaphore).handle, vulkan.NullFence, &index)
	switch res {
	case vulkan.ErrorOutOfDate:
		return 0, present.OutcomeStale, nil
	case vulkan.Success, vulkan.Suboptimal:
		return int(index), present.OutcomeOK, nil
	default:
		return 0, present.OutcomeOK, classify(res)
	}
}

// Submit queues the recorded buffer: wait on the image-acquired
// semaphore at the color-output stage, signal the render-finished
// semaphore and the slot's completion fence.
func (ctx *Context) Submit(cb present.CommandBuffer, wait, done present.Semaphore, completion present.Fence) error {
	submit := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{wait.(*semaphore).handle},
		PWaitDstStageMask: []vulkan.PipelineStageFlags{
			vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{cb.(*commandBuffer).handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vulkan.Semaphore{done.(*semaphore).handle},
	}
	res := vulkan.QueueSubmit(ctx.graphicsQueue, 1, []vulkan.SubmitInfo{submit},
		completion.(*fence).handle)
	return classify(res)
}

// Present hands the image to the presentation queue. Out-of-date and
// suboptimal both mean the chain no longer matches the surface.
func (ctx *Context) Present(chain present.ChainHandle, index int, done present.Semaphore) (present.Outcome, error) {
	sc := chain.(*swapchain)
	info := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{done.(*semaphore).handle},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{sc.handle},
		PImageIndices:      []uint32{uint32(index)},
	}
	res := vulkan.QueuePresent(ctx.presentQueue, &info)
	switch res {
	case vulkan.ErrorOutOfDate, vulkan.Suboptimal:
		return present.OutcomeStale, nil
	case vulkan.Success:
		return present.OutcomeOK, nil
	default:
		return present.OutcomeOK, classify(res)
	}
}

// WaitPresentIdle drains only the presentation queue, with a deadline.
// An empty submission carrying a fence signals once all work queued
// before it completes; the rest of the device keeps running.
func (ctx *Context) WaitPresentIdle(timeout time.Duration) error {
	info := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}
	var f vulkan.Fence
	if res := vulkan.CreateFence(ctx.device, &info, nil, &f); IsError(res) {
		return classify(res)
	}
	defer vulkan.DestroyFence(ctx.device, f, nil)

	if res := vulkan.QueueSubmit(ctx.presentQueue, 0, nil, f); IsError(res) {
		return classify(res)
	}
	res := vulkan.WaitForFences(ctx.device, 1, []vulkan.Fence{f}, vulkan.True,
		uint64(timeout.Nanoseconds()))
	switch res {
	case vulkan.Success:
		return nil
	case vulkan.Timeout:
		return present.ErrWaitTimeout
	default:
		return classify(res)
	}
}

// Destroy tears the context down. Swapchains, sync objects and command
// buffers created through it must already be gone.
func (ctx *Context) Destroy() {
	if ctx.device != nil {
		if ctx.renderPass != vulkan.NullRenderPass {
			vulkan.DestroyRenderPass(ctx.device, ctx.renderPass, nil)
			ctx.renderPass = vulkan.NullRenderPass
		}
		if ctx.cmdPool != vulkan.NullCommandPool {
			vulkan.DestroyCommandPool(ctx.device, ctx.cmdPool, nil)
			ctx.cmdPool = vulkan.NullCommandPool
		}
		vulkan.DestroyDevice(ctx.device, nil)
		ctx.device = nil
	}
	if ctx.instance != nil {
		if ctx.surface != vulkan.NullSurface {
			vulkan.DestroySurface(ctx.instance, ctx.surface, nil)
			ctx.surface = vulkan.NullSurface
		}
		vulkan.DestroyInstance(ctx.instance, nil)
		ctx.instance = nil
	}
}

var _ present.Device = (*Context)(nil)
