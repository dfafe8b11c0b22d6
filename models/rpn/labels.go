package rpn

// Label is the training role of an anchor. Labels are totally ordered,
// negative < neutral < positive, and an anchor keeps the highest label any
// ground-truth box assigns it.
type Label uint8

const (
	// LabelNegative marks a background anchor.
	LabelNegative Label = iota
	// LabelNeutral marks an anchor excluded from the loss.
	LabelNeutral
	// LabelPositive marks an anchor assigned to an object.
	LabelPositive
)

// String returns the short name of the label.
func (l Label) String() string {
	switch l {
	case LabelNegative:
		return "neg"
	case LabelNeutral:
		return "neutral"
	case LabelPositive:
		return "pos"
	default:
		return "unknown"
	}
}

// Promote returns the higher of two labels.
func (l Label) Promote(other Label) Label {
	if other > l {
		return other
	}
	return l
}

// labelForIoU maps one anchor/box overlap onto a label: above max is positive,
// (min, max] is neutral, anything else negative.
func labelForIoU(iou, minOverlap, maxOverlap float64) Label {
	switch {
	case iou > maxOverlap:
		return LabelPositive
	case iou > minOverlap:
		return LabelNeutral
	default:
		return LabelNegative
	}
}
