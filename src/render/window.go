package render

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"
)

// Window wraps a GLFW window as the engine's window/surface provider.
// The caller must have locked the OS thread; GLFW and the presentation
// loop both require it.
type Window struct {
	win *glfw.Window
}

// NewWindow initializes GLFW (once per process is fine; glfw.Init is
// reference counted) and opens a resizable window without any client
// API, as Vulkan requires.
func NewWindow(title string, width, height int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw: vulkan not supported on this system")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw create window: %w", err)
	}
	return &Window{win: win}, nil
}

func (w *Window) FramebufferSize() (int, int) {
	return w.win.GetFramebufferSize()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// RequiredExtensions lists the instance extensions the window system
// needs for surface creation.
func (w *Window) RequiredExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface makes the presentation surface for the given instance.
func (w *Window) CreateSurface(instance vulkan.Instance) (vulkan.Surface, error) {
	ptr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vulkan.NullSurface, fmt.Errorf("create window surface: %w", err)
	}
	return vulkan.SurfaceFromPointer(ptr), nil
}

// Destroy closes the window and releases GLFW.
func (w *Window) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}
