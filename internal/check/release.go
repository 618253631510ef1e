//go:build !voxeldebug

package check

// Enabled показывает, включены ли медленные проверки
const Enabled = false
