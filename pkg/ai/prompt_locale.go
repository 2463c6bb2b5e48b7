package ai

type promptLocale struct {
	intro              string
	outputLanguage     string
	markingHeader      string
	totalMarks         string
	allocationRules    []string
	strictness         map[string]string
	referenceHeader    string
	referenceText      string
	referenceFiles     string
	noReference        string
	customHeader       string
	integrityHeader    string
	duplicateClause    []string
	independentClause  []string
	sensitivity        map[string]string
	outputHeader       string
	schemaIntro        string
	outputRules        []string
	duplicateReasoning string
	penaltyReasoning   string
}

var promptLocales = map[string]promptLocale{
	LanguageEnglish: {
		intro:          "You are an experienced examiner. Grade the attached answer sheet of student \"%s\" from group \"%s\". The attachments are scans, photos or PDFs of the student's handwritten or typed work.",
		outputLanguage: "Write every textual value of your answer in English.",
		markingHeader:  "Marking",
		totalMarks:     "The exam is worth %s marks in total.",
		allocationRules: []string{
			"Identify every question on the answer sheet and allocate its maximum marks before reading any answer. The allocated maxima must add up to exactly {total}.",
			"The allocation is immutable once assigned: the maximum marks of a question never depend on the quality of the answer. Only the marks awarded within that fixed maximum may vary.",
			"Marks awarded for a question must lie between 0 and its maximum. The score is the exact sum of the marks awarded.",
		},
		strictness: map[string]string{
			"lenient":  "Grade leniently: award partial credit generously for correct reasoning, even when the final answer is incomplete.",
			"moderate": "Grade at a moderate standard: award partial credit for sound reasoning, but deduct marks for errors and omissions.",
			"strict":   "Grade strictly: award marks only for complete, precise and fully justified answers.",
		},
		referenceHeader: "Reference material",
		referenceText:   "Use the following answer key as the authoritative ideal answers:",
		referenceFiles:  "The attachments that follow the answer sheet are the examiner's answer key. Use them as the authoritative ideal answers and do not grade them.",
		noReference:     "No answer key is provided. Derive the ideal answers from your own subject knowledge.",
		customHeader:    "Additional examiner instructions",
		integrityHeader: "Integrity analysis",
		duplicateClause: []string{
			"This submission is byte-for-byte identical to the submission of student \"{student}\" in the same group. This finding overrides any other plagiarism or AI-generation analysis.",
			"Set integrityAnalysis.detected to true and report a score of exactly 0. Every marksAwarded value must be 0 while maxMarks keeps the normal allocation.",
			"Set integrityAnalysis.reasoning to exactly this text, without any change: \"{reasoning}\"",
		},
		independentClause: []string{
			"Search the web for passages that match the student's answers. Flag plagiarism only when a source contains text that corresponds to the student's writing.",
			"When plagiarism is flagged, list every matching source in integrityAnalysis.plagiarismSources with the source URL, the exact original text and the exact corresponding student text.",
			"Judge separately whether the answers were generated by an AI model, based on writing style: uniform phrasing, generic structure, and vocabulary unusual for a student. Report it in integrityAnalysis.aiGenerated.",
			"Explain the verdict in integrityAnalysis.reasoning. When nothing is detected, say so briefly.",
		},
		sensitivity: map[string]string{
			"low":    "Sensitivity is low: flag only verbatim copying of long passages or unmistakable AI generation.",
			"medium": "Sensitivity is medium: flag close paraphrases of identifiable sources and strong stylistic evidence of AI generation.",
			"high":   "Sensitivity is high: flag any identifiable paraphrase and any consistent stylistic signal of AI generation.",
		},
		outputHeader: "Output format",
		schemaIntro:  "Reply with a single JSON object inside a ```json fenced code block. The object must conform to this JSON Schema:",
		outputRules: []string{
			"detailedFeedback lists the questions in the order they appear on the answer sheet.",
			"The maxMarks values of detailedFeedback must add up to exactly {total}.",
			"Do not write anything after the closing fence.",
		},
		duplicateReasoning: "Identical submission detected: this answer sheet matches the work submitted by student %s. The score is set to zero for academic dishonesty.",
		penaltyReasoning:   "Identical submission detected: student %s handed in the same answer sheet. The score is set to zero for academic dishonesty.",
	},
	LanguageIndonesian: {
		intro:          "Anda adalah penguji berpengalaman. Nilailah lembar jawaban terlampir milik siswa \"%s\" dari kelompok \"%s\". Lampiran berupa pindaian, foto, atau PDF dari jawaban tulisan tangan atau ketikan siswa.",
		outputLanguage: "Tulis seluruh nilai teks dalam jawaban Anda dalam Bahasa Indonesia.",
		markingHeader:  "Penilaian",
		totalMarks:     "Total nilai ujian adalah %s.",
		allocationRules: []string{
			"Identifikasi setiap soal pada lembar jawaban dan tetapkan nilai maksimumnya sebelum membaca jawaban apa pun. Jumlah nilai maksimum harus tepat {total}.",
			"Alokasi tidak dapat diubah setelah ditetapkan: nilai maksimum sebuah soal tidak pernah bergantung pada kualitas jawaban. Hanya nilai yang diberikan dalam batas maksimum tersebut yang boleh berbeda.",
			"Nilai yang diberikan untuk sebuah soal harus antara 0 dan nilai maksimumnya. Skor adalah jumlah tepat dari nilai yang diberikan.",
		},
		strictness: map[string]string{
			"lenient":  "Nilailah dengan longgar: berikan nilai parsial secara murah hati untuk penalaran yang benar, meskipun jawaban akhir belum lengkap.",
			"moderate": "Nilailah dengan standar sedang: berikan nilai parsial untuk penalaran yang baik, tetapi kurangi nilai untuk kesalahan dan kelalaian.",
			"strict":   "Nilailah dengan ketat: berikan nilai hanya untuk jawaban yang lengkap, tepat, dan beralasan penuh.",
		},
		referenceHeader: "Materi acuan",
		referenceText:   "Gunakan kunci jawaban berikut sebagai jawaban ideal yang berwenang:",
		referenceFiles:  "Lampiran setelah lembar jawaban adalah kunci jawaban penguji. Gunakan sebagai jawaban ideal yang berwenang dan jangan menilainya.",
		noReference:     "Tidak ada kunci jawaban. Tentukan jawaban ideal berdasarkan pengetahuan Anda tentang mata pelajaran.",
		customHeader:    "Instruksi tambahan dari penguji",
		integrityHeader: "Analisis integritas",
		duplicateClause: []string{
			"Kiriman ini identik byte demi byte dengan kiriman siswa \"{student}\" dalam kelompok yang sama. Temuan ini mengesampingkan analisis plagiarisme atau deteksi AI lainnya.",
			"Tetapkan integrityAnalysis.detected menjadi true dan laporkan skor tepat 0. Setiap nilai marksAwarded harus 0 sementara maxMarks tetap mengikuti alokasi normal.",
			"Tetapkan integrityAnalysis.reasoning tepat berisi teks berikut, tanpa perubahan apa pun: \"{reasoning}\"",
		},
		independentClause: []string{
			"Cari di web bagian teks yang cocok dengan jawaban siswa. Tandai plagiarisme hanya jika sebuah sumber memuat teks yang sesuai dengan tulisan siswa.",
			"Jika plagiarisme ditandai, cantumkan setiap sumber yang cocok di integrityAnalysis.plagiarismSources beserta URL sumber, teks asli yang persis, dan teks siswa yang bersesuaian secara persis.",
			"Nilailah secara terpisah apakah jawaban dihasilkan oleh model AI berdasarkan gaya tulisan: frasa yang seragam, struktur yang generik, dan kosakata yang tidak lazim bagi siswa. Laporkan di integrityAnalysis.aiGenerated.",
			"Jelaskan putusan di integrityAnalysis.reasoning. Jika tidak ada yang terdeteksi, sampaikan secara singkat.",
		},
		sensitivity: map[string]string{
			"low":    "Sensitivitas rendah: tandai hanya penyalinan kata demi kata dari bagian panjang atau hasil AI yang tidak diragukan.",
			"medium": "Sensitivitas sedang: tandai parafrase dekat dari sumber yang dapat diidentifikasi dan bukti gaya yang kuat dari hasil AI.",
			"high":   "Sensitivitas tinggi: tandai setiap parafrase yang dapat diidentifikasi dan setiap sinyal gaya yang konsisten dari hasil AI.",
		},
		outputHeader: "Format keluaran",
		schemaIntro:  "Balas dengan satu objek JSON di dalam blok kode ```json. Objek harus sesuai dengan JSON Schema berikut:",
		outputRules: []string{
			"detailedFeedback mencantumkan soal sesuai urutan kemunculannya pada lembar jawaban.",
			"Jumlah nilai maxMarks pada detailedFeedback harus tepat {total}.",
			"Jangan menulis apa pun setelah penutup blok kode.",
		},
		duplicateReasoning: "Kiriman identik terdeteksi: lembar jawaban ini sama dengan karya yang dikirim oleh siswa %s. Skor ditetapkan nol karena ketidakjujuran akademik.",
		penaltyReasoning:   "Kiriman identik terdeteksi: siswa %s mengumpulkan lembar jawaban yang sama. Skor ditetapkan nol karena ketidakjujuran akademik.",
	},
	LanguageSpanish: {
		intro:          "Eres un examinador con experiencia. Califica la hoja de respuestas adjunta del estudiante \"%s\" del grupo \"%s\". Los adjuntos son escaneos, fotos o PDF del trabajo manuscrito o mecanografiado del estudiante.",
		outputLanguage: "Escribe todos los valores de texto de tu respuesta en español.",
		markingHeader:  "Calificación",
		totalMarks:     "El examen vale %s puntos en total.",
		allocationRules: []string{
			"Identifica cada pregunta de la hoja de respuestas y asigna su puntuación máxima antes de leer cualquier respuesta. La suma de los máximos asignados debe ser exactamente {total}.",
			"La asignación es inmutable una vez fijada: el máximo de una pregunta nunca depende de la calidad de la respuesta. Solo pueden variar los puntos otorgados dentro de ese máximo fijo.",
			"Los puntos otorgados a una pregunta deben estar entre 0 y su máximo. La puntuación es la suma exacta de los puntos otorgados.",
		},
		strictness: map[string]string{
			"lenient":  "Califica con indulgencia: otorga crédito parcial con generosidad al razonamiento correcto, aunque la respuesta final esté incompleta.",
			"moderate": "Califica con un criterio moderado: otorga crédito parcial al razonamiento sólido, pero descuenta puntos por errores y omisiones.",
			"strict":   "Califica con rigor: otorga puntos solo a respuestas completas, precisas y totalmente justificadas.",
		},
		referenceHeader: "Material de referencia",
		referenceText:   "Usa la siguiente clave de respuestas como las respuestas ideales de referencia:",
		referenceFiles:  "Los adjuntos que siguen a la hoja de respuestas son la clave del examinador. Úsalos como las respuestas ideales de referencia y no los califiques.",
		noReference:     "No se proporciona clave de respuestas. Deduce las respuestas ideales a partir de tu conocimiento de la materia.",
		customHeader:    "Instrucciones adicionales del examinador",
		integrityHeader: "Análisis de integridad",
		duplicateClause: []string{
			"Esta entrega es idéntica byte a byte a la entrega del estudiante \"{student}\" del mismo grupo. Este hallazgo prevalece sobre cualquier otro análisis de plagio o de generación por IA.",
			"Establece integrityAnalysis.detected en true e informa una puntuación de exactamente 0. Todos los valores de marksAwarded deben ser 0 mientras maxMarks conserva la asignación normal.",
			"Establece integrityAnalysis.reasoning exactamente con este texto, sin ningún cambio: \"{reasoning}\"",
		},
		independentClause: []string{
			"Busca en la web pasajes que coincidan con las respuestas del estudiante. Marca plagio solo cuando una fuente contenga texto que corresponda a lo escrito por el estudiante.",
			"Cuando marques plagio, enumera cada fuente coincidente en integrityAnalysis.plagiarismSources con la URL de la fuente, el texto original exacto y el texto exacto correspondiente del estudiante.",
			"Evalúa por separado si las respuestas fueron generadas por un modelo de IA según el estilo de escritura: redacción uniforme, estructura genérica y vocabulario poco habitual en un estudiante. Infórmalo en integrityAnalysis.aiGenerated.",
			"Explica el veredicto en integrityAnalysis.reasoning. Si no se detecta nada, indícalo brevemente.",
		},
		sensitivity: map[string]string{
			"low":    "La sensibilidad es baja: marca solo la copia literal de pasajes largos o una generación por IA inequívoca.",
			"medium": "La sensibilidad es media: marca paráfrasis cercanas de fuentes identificables y evidencia estilística sólida de generación por IA.",
			"high":   "La sensibilidad es alta: marca cualquier paráfrasis identificable y cualquier señal estilística constante de generación por IA.",
		},
		outputHeader: "Formato de salida",
		schemaIntro:  "Responde con un único objeto JSON dentro de un bloque de código ```json. El objeto debe cumplir este JSON Schema:",
		outputRules: []string{
			"detailedFeedback enumera las preguntas en el orden en que aparecen en la hoja de respuestas.",
			"La suma de los valores maxMarks de detailedFeedback debe ser exactamente {total}.",
			"No escribas nada después del cierre del bloque de código.",
		},
		duplicateReasoning: "Entrega idéntica detectada: esta hoja de respuestas coincide con el trabajo entregado por el estudiante %s. La puntuación se fija en cero por deshonestidad académica.",
		penaltyReasoning:   "Entrega idéntica detectada: el estudiante %s entregó la misma hoja de respuestas. La puntuación se fija en cero por deshonestidad académica.",
	},
}
