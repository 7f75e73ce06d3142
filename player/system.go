package player

import (
	"runtime"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/geom"
)

// playerVersion is the major,minor,build,revision scripts see in $version.
const playerVersion = "8,0,0,0"

// platform returns the $version platform code and the capabilities os name.
func platform() (code, os string) {
	switch runtime.GOOS {
	case "windows":
		return "WIN", "Windows"
	case "darwin":
		return "MAC", "MacOS"
	}
	return "LNX", "Linux"
}

// installSystem adds the System object. The player has no audio, video,
// printing or clipboard, and security calls are accepted without effect.
func (p *Player) installSystem() {
	vm := p.vm
	code, osName := platform()
	version := avm.String(code + " " + playerVersion)

	caps := vm.NewObject()
	size := p.movie.FrameSize
	for _, kv := range []struct {
		k string
		v avm.Value
	}{
		{"version", version},
		{"os", avm.String(osName)},
		{"manufacturer", avm.String("reel")},
		{"playerType", avm.String("StandAlone")},
		{"language", avm.String("en")},
		{"screenResolutionX", avm.Number(size.Width() / geom.TwipsPerPixel)},
		{"screenResolutionY", avm.Number(size.Height() / geom.TwipsPerPixel)},
		{"screenDPI", avm.Int(72)},
		{"screenColor", avm.String("color")},
		{"pixelAspectRatio", avm.Int(1)},
		{"isDebugger", avm.False},
		{"hasAudio", avm.False},
		{"hasMP3", avm.False},
		{"hasAudioEncoder", avm.False},
		{"hasVideoEncoder", avm.False},
		{"hasEmbeddedVideo", avm.False},
		{"hasStreamingAudio", avm.False},
		{"hasStreamingVideo", avm.False},
		{"hasScreenBroadcast", avm.False},
		{"hasScreenPlayback", avm.False},
		{"hasPrinting", avm.False},
		{"hasAccessibility", avm.False},
		{"hasIME", avm.False},
		{"avHardwareDisable", avm.True},
		{"localFileReadDisable", avm.True},
	} {
		caps.Define(kv.k, kv.v, avm.ReadOnly|avm.DontDelete)
	}

	security := vm.NewObject()
	security.Define("sandboxType", avm.String("localTrusted"), avm.ReadOnly)
	for _, name := range []string{"allowDomain", "allowInsecureDomain", "loadPolicyFile"} {
		vm.SetMethod(security, name, func(c *avm.Call) (avm.Value, error) {
			log.Debugf("System.security.%s(%s) ignored", name, c.StringArg(0))
			return avm.Undefined, nil
		})
	}

	system := vm.NewObject()
	system.Put("capabilities", avm.Obj(caps))
	system.Put("security", avm.Obj(security))
	system.Put("useCodepage", avm.False)
	system.Put("exactSettings", avm.True)
	vm.SetMethod(system, "setClipboard", func(c *avm.Call) (avm.Value, error) {
		return avm.False, nil
	})
	vm.SetMethod(system, "showSettings", func(c *avm.Call) (avm.Value, error) {
		return avm.Undefined, nil
	})
	vm.SetGlobal("System", avm.Obj(system))

	vm.SetGlobal("$version", version)
	p.RegisterGlobal("getVersion", func(c *avm.Call) (avm.Value, error) {
		return version, nil
	})
}
