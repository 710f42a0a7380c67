// Command literal reads a document on stdin and prints it as the body of a
// C string-array initializer:
//
//	literal < help.txt
//	  "first line",
//	  "second \"quoted\" line"
package main

import (
	"os"

	"go.uber.org/zap"

	"quotestub/internal/literal"
	"quotestub/internal/logger"
)

func main() {
	if err := literal.Format(os.Stdin, os.Stdout); err != nil {
		log := logger.Must("")
		log.Fatal("format", zap.Error(err))
	}
}
