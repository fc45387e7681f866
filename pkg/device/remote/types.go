package remote

type EmptyResponse struct {
}

type DrawBitmapRequest struct {
	PosX  uint16
	PosY  uint16
	Image []byte
}

type SizeResponse struct {
	Width  int
	Height int
}
