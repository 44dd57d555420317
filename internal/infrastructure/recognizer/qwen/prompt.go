package qwen

const maxTextSnippet = 8000

// recognitionPrompt asks for the same shape as domain.RecognizedData so the
// model output unmarshals directly.
const recognitionPrompt = `Ты распознаёшь товарно-транспортные накладные (ТТН) на строительные материалы.
Верни строгий JSON-объект с ключами:
document_number (строка), document_date (строка, формат ГГГГ-ММ-ДД или пусто),
supplier (строка), delivery_address (строка),
items (массив объектов с ключами name (строка), unit (строка), quantity (число)).
Никакого markdown и никаких лишних ключей. Если поле не найдено, оставь его пустым.`
