package models

// SwappedOrders 回傳兩份文件交換後的 order（a 的、b 的）。
// 顯示順序是 order 再 id；order 相同時讓原本排在後面（id 較大）的一方變成 order-1。
func SwappedOrders(a, b string, oa, ob int) (int, int) {
	if oa != ob {
		return ob, oa
	}
	if a > b {
		return oa - 1, ob
	}
	return oa, ob - 1
}
