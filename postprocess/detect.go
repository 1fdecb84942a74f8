package postprocess

// BoxRect are the corner coordinates of the bounding box of a detected object
// in the Model's input image space
type BoxRect struct {
	Left   float32
	Top    float32
	Right  float32
	Bottom float32
}

// Width returns the width of the box
func (b BoxRect) Width() float32 {
	return b.Right - b.Left
}

// Height returns the height of the box
func (b BoxRect) Height() float32 {
	return b.Bottom - b.Top
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
	// ID is a unique ID assigned to the detection result
	ID int64
}
