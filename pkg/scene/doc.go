// Package scene loads declarative scene documents and runs them on the
// layout engine.
//
// A document names a window size and a list of entities. Each entity has
// constraints written as small linear equations over entity attributes:
//
//	[window]
//	width = 800
//	height = 600
//
//	[[entities]]
//	name = "header"
//	constraints = [
//	  "self.left == parent.left",
//	  "self.top == parent.top",
//	  "self.width == parent.width",
//	  "self.height == 50",
//	]
//
// References are self, parent (the root when no parent is declared), root,
// prev (the previous sibling in document order) or another entity's name.
// Attributes are left, top, width, height, right, bottom, centerx and
// centery. A trailing "@ strong" (or required, medium, weak, or a number)
// sets the strength; the default is required.
//
// Documents may be TOML or YAML. [Build] turns a [Document] into a [World]
// whose Tick runs the layout engine.
package scene
