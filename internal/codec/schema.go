package codec

// The types below freeze the on-disk document layout. They mirror pkg/core field
// for field but are kept separate so the in-memory model can change without
// touching the file format. Required fields are pointers so a missing key can be
// told apart from a zero value.
//
//	{ header: {seq, stamp: {sec, nsec}, frame_id},
//	  poses: [ { header, pose: { position: {x,y,z}, orientation: {x,y,z,w} } } ] }

type timeDoc struct {
	Sec  *uint32 `json:"sec"`
	Nsec *uint32 `json:"nsec"`
}

type headerDoc struct {
	Seq     uint32   `json:"seq"`
	Stamp   *timeDoc `json:"stamp"`
	FrameID *string  `json:"frame_id"`
}

type pointDoc struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type quaternionDoc struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
	W *float64 `json:"w"`
}

type poseDoc struct {
	Position    *pointDoc      `json:"position"`
	Orientation *quaternionDoc `json:"orientation"`
}

type poseStampedDoc struct {
	Header *headerDoc `json:"header"`
	Pose   *poseDoc   `json:"pose"`
}

type pathDoc struct {
	Header *headerDoc        `json:"header"`
	Poses  *[]poseStampedDoc `json:"poses"`
}
