// Package check содержит утверждения для воксельных структур.
//
// Slow проверяет предусловия, нарушение которых является ошибкой
// вызывающего кода: в обычной сборке проверка вырезается компилятором,
// с тегом voxeldebug превращается в панику. Always проверяет внутреннюю
// согласованность и срабатывает всегда.
package check

import "fmt"

// Slow паникует, если cond == false и сборка сделана с тегом voxeldebug
func Slow(cond bool, format string, args ...interface{}) {
	if Enabled && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Always паникует, если cond == false
func Always(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
