//go:build !unix

package xfile

// FreeBytes 在非 Unix 平台返回 ErrUnsupportedPlatform。
func FreeBytes(path string) (uint64, error) {
	return 0, ErrUnsupportedPlatform
}
