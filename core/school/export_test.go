package school

// MockGeneratePassword replaces the password generator and returns a func restoring it.
func MockGeneratePassword(fn func() (string, error)) (restore func()) {
	orig := generatePasswordFunc
	generatePasswordFunc = fn
	return func() { generatePasswordFunc = orig }
}
