package rendering

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	glfwOnce sync.Once
	glfwErr  error
)

// GLContextCfg describes the hidden window backing a GLContext.
type GLContextCfg struct {
	Name   string
	Width  int
	Height int
	// UseEGL creates the context through EGL instead of the native
	// platform API, which is required for importing EGL images.
	UseEGL bool
}

// GLContext is an OpenGL 4.1 core context owned by a hidden GLFW window.
// All GL calls run on a dedicated locked OS thread.
type GLContext struct {
	cfg     GLContextCfg
	window  *glfw.Window
	thread  *contextThread
	shared  *shareGroup
	version string
	logger  *slog.Logger

	// resolved at runtime, nil when the driver lacks GL_OES_EGL_image
	eglImageTargetTexture2D func(target uint32, image uintptr)

	featureMu sync.Mutex
	features  map[string]bool
}

// NewGLContext creates the window and starts the context thread. It must be
// called from the main thread, like every other GLFW window operation. When
// share is non-nil the new context shares objects with it.
func NewGLContext(cfg GLContextCfg, share *GLContext) (*GLContext, error) {
	glfwOnce.Do(func() {
		glfwErr = glfw.Init()
	})
	if glfwErr != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", glfwErr)
	}

	c := &GLContext{
		cfg:      cfg,
		features: make(map[string]bool),
		logger:   slog.With(slog.String("module", cfg.Name)),
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if cfg.UseEGL {
		glfw.WindowHint(glfw.ContextCreationAPI, glfw.EGLContextAPI)
	}

	var shareWindow *glfw.Window
	if share != nil {
		shareWindow = share.window
		c.shared = share.shared
	} else {
		c.shared = newShareGroup()
	}

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Name, nil, shareWindow)
	if err != nil {
		return nil, fmt.Errorf("could not create context window: %w", err)
	}
	c.window = window
	glfw.DetachCurrentContext()

	c.thread, err = startContextThread(c.setup, glfw.DetachCurrentContext)
	if err != nil {
		window.Destroy()
		return nil, err
	}

	c.logger.Info(fmt.Sprintf("OpenGL version '%s' on %s", c.version, c.Platform()))
	return c, nil
}

func (c *GLContext) setup() error {
	c.window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("could not initialise OpenGL context: %w", err)
	}
	c.version = gl.GoStr(gl.GetString(gl.VERSION))

	if proc := glfw.GetProcAddress("glEGLImageTargetTexture2DOES"); proc != nil {
		purego.RegisterFunc(&c.eglImageTargetTexture2D, uintptr(proc))
	}
	return nil
}

func (c *GLContext) group() *shareGroup {
	return c.shared
}

func (c *GLContext) Name() string { return c.cfg.Name }
func (c *GLContext) API() API     { return APIOpenGL3 }

func (c *GLContext) Platform() Platform {
	if c.cfg.UseEGL {
		return PlatformEGL
	}
	return PlatformGLX
}

func (c *GLContext) Handle() uintptr {
	return uintptr(c.shared.id)
}

func (c *GLContext) CanShare(other Context) bool {
	return canShare(c, other)
}

// CheckFeature reports whether a GL or window-system extension is available.
func (c *GLContext) CheckFeature(feature string) bool {
	c.featureMu.Lock()
	supported, known := c.features[feature]
	c.featureMu.Unlock()
	if known {
		return supported
	}

	c.thread.run(func() {
		supported = glfw.ExtensionSupported(feature)
	})

	c.featureMu.Lock()
	c.features[feature] = supported
	c.featureMu.Unlock()
	return supported
}

func (c *GLContext) ThreadAdd(fn func(Context)) {
	if !c.thread.run(func() { fn(c) }) {
		c.logger.Warn("dropping work submitted to a closed context")
	}
}

func (c *GLContext) GenTexture(target TextureTarget, format TextureFormat, width, height int) (uint32, error) {
	id := SetupTexture(target, format, width, height)
	if err := glError("glTexImage2D"); err != nil {
		gl.DeleteTextures(1, &id)
		return 0, err
	}
	return id, nil
}

func (c *GLContext) DeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

func (c *GLContext) TexSubImage(id uint32, target TextureTarget, format TextureFormat, width, height, stride int, data []byte) error {
	SendTextureToGPU(id, target, format, width, height, stride, data)
	return glError("glTexSubImage2D")
}

func (c *GLContext) ImportImage(id uint32, target TextureTarget, image uintptr) error {
	if c.eglImageTargetTexture2D == nil {
		return fmt.Errorf("%w: glEGLImageTargetTexture2DOES is not available", ErrUnsupported)
	}
	glTarget := glTextureTarget(target)
	gl.BindTexture(glTarget, id)
	c.eglImageTargetTexture2D(glTarget, image)
	return glError("glEGLImageTargetTexture2DOES")
}

func (c *GLContext) Close() {
	c.thread.stop()
	c.window.Destroy()
}

func glError(call string) error {
	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("%s failed with OpenGL error 0x%x", call, e)
	}
	return nil
}
