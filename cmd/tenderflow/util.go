package main

import (
	"strconv"
	"strings"
	"time"
)

// flagName turns a filter parameter into its flag spelling (min_value -> min-value).
func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}

func exportID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
