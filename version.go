package boxdd

// Version of the binding layer.
const Version = "0.1.0"

// backendName identifies the vendored physics engine. The engine choice is a
// compile-time property of the module; there is no runtime switch.
const backendName = "jakecoffman/cp (Chipmunk2D)"

// Backend returns the identity of the physics engine this build links.
func Backend() string {
	return backendName
}
