package ta

func Last(s []float64, position int) float64 {
	return s[len(s)-1-position]
}

func LastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Mean 计算均值，空切片返回0
func Mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// Lowest 计算最近 n 个数据点中的最小值
func Lowest(s []float64, period int) float64 {
	arr := LastValues(s, period)
	minVal := arr[0]

	for _, value := range arr {
		if value < minVal {
			minVal = value
		}
	}
	return minVal
}

// Highest 计算最近 n 个数据点中的最大值
func Highest(s []float64, period int) float64 {
	arr := LastValues(s, period)
	maxVal := arr[0]

	for _, value := range arr {
		if value > maxVal {
			maxVal = value
		}
	}
	return maxVal
}
