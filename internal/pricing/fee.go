package pricing

// Фиксированная комиссия платформы за задание, в рублях.
// Комиссия не зависит от суммы отклика и всегда неотрицательна.
const flatPlatformFee = 49.0

// PlatformFee возвращает комиссию платформы для заданной суммы.
func PlatformFee(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return flatPlatformFee
}

// EscrowTotal возвращает полную сумму к заморозке: сумма отклика плюс комиссия.
func EscrowTotal(amount float64) float64 {
	return amount + PlatformFee(amount)
}
