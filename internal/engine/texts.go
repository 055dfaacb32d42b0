package engine

import (
	"fmt"
	"strings"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// Button labels. Variants below keep older keyboard generations matching.
const (
	btnAbout       = "من هو النائب؟"
	btnPrograms    = "برنامج النائب"
	btnCommitments = "التزامات النائب"
	btnQuestions   = "الأسئلة والأجوبة"
	btnFeedback    = "ملاحظات واقتراحات"
	btnRequest     = "طلب لقاء مع النائب"
	btnOther       = "خدمات أخرى"
	btnBack        = "رجوع"

	btnBio          = "نبذة عن النائب"
	btnParty        = "الانتماء السياسي"
	btnConstituency = "الدائرة الانتخابية"
	btnOffices      = "مكاتب التواصل"

	btnBrowse     = "تصفح الأسئلة المجابة"
	btnAsk        = "طرح سؤال جديد"
	btnByCategory = "حسب الموضوع"
	btnBySearch   = "البحث بكلمة"
	btnMore       = "المزيد"
	btnContinue   = "متابعة"

	btnHowToReach    = "طرق التواصل"
	btnAboutPlatform = "عن المنصة"
)

var buttonVariants = map[string][]string{
	btnAbout:       {btnAbout, "من هو النائب", "تعرف على النائب"},
	btnPrograms:    {btnPrograms, "البرنامج الانتخابي"},
	btnCommitments: {btnCommitments, "الالتزامات"},
	btnQuestions:   {btnQuestions, "الأسئلة", "سؤال وجواب"},
	btnFeedback:    {btnFeedback, "ملاحظات", "اقتراحات"},
	btnRequest:     {btnRequest, "طلب لقاء", "طلب موعد"},
	btnOther:       {btnOther, "أخرى"},
	btnBack:        {btnBack, "العودة", "رجوع للقائمة", "🔙"},
	btnBrowse:      {btnBrowse, "تصفح الأسئلة"},
	btnAsk:         {btnAsk, "طرح سؤال", "أريد أن أسأل"},
	btnByCategory:  {btnByCategory, "حسب الموضوع", "التصنيفات"},
	btnBySearch:    {btnBySearch, "بحث"},
	btnMore:        {btnMore, "التالي"},
	btnContinue:    {btnContinue, "استمرار"},
}

// Default question topics, used when the tenant profile defines none.
var defaultTopics = []string{
	"اشتغال",
	"صحة",
	"تعليم",
	"بنية تحتية",
	"سكن",
	"مواضيع أخرى",
}

const (
	msgChooseFromMenu    = "المرجو الاختيار من الأزرار أسفله."
	msgUseBack           = "للرجوع إلى القائمة السابقة اضغط زر الرجوع."
	msgAboutMenu         = "ماذا تريد أن تعرف عن النائب؟"
	msgOtherMenu         = "خدمات أخرى:"
	msgQuestionEntry     = "يمكنك تصفح الأسئلة التي أجاب عنها النائب أو طرح سؤال جديد."
	msgViewMethod        = "كيف تريد تصفح الأسئلة المجابة؟"
	msgChooseTopic       = "اختر الموضوع:"
	msgSearchPrompt      = "اكتب كلمة أو عبارة للبحث في الأسئلة المجابة."
	msgSearchTooShort    = "كلمة البحث قصيرة جدا، اكتب حرفين على الأقل."
	msgNoAnswered        = "لا توجد أسئلة مجابة في هذا الموضوع حاليا."
	msgNoSearchResults   = "لم يتم العثور على أسئلة مطابقة."
	msgNoMoreResults     = "لا توجد نتائج إضافية."
	msgAskEntry          = "قبل طرح سؤالك: يعرض السؤال على النائب بعد المراجعة، ويصلك الجواب هنا عند النشر. اضغط متابعة للاستمرار."
	msgAskTopic          = "اختر موضوع سؤالك:"
	msgAskText           = "اكتب نص سؤالك (من 10 إلى 500 حرف):"
	msgQuestionTooShort  = "سؤالك قصير جدا، المطلوب 10 أحرف على الأقل."
	msgQuestionTooLong   = "سؤالك طويل جدا، الحد الأقصى 500 حرف."
	msgQuestionDuplicate = "هذا السؤال سبق إرساله من قبل، ستجد الجواب ضمن الأسئلة المجابة عند النشر."
	msgQuestionReceived  = "توصلنا بسؤالك، سيعرض على النائب وستصلك الإجابة هنا عند النشر. شكرا لك."
	msgFeedbackPrompt    = "اكتب ملاحظتك أو اقتراحك:"
	msgFeedbackTooShort  = "المرجو كتابة ملاحظة أوضح (5 أحرف على الأقل)."
	msgFeedbackTooLong   = "الملاحظة طويلة جدا، الحد الأقصى 1000 حرف."
	msgFeedbackReceived  = "شكرا لك، توصلنا بملاحظتك."
	msgRequestName       = "لطلب لقاء مع النائب، ما هو اسمك الكامل؟"
	msgNameTooShort      = "المرجو كتابة الاسم الكامل (3 أحرف على الأقل)."
	msgRequestRole       = "ما هي صفتك؟ (مواطن، جمعية، مقاولة...)"
	msgRoleTooShort      = "المرجو توضيح الصفة."
	msgRequestWhere      = "من أي جماعة أو دائرة أنت؟"
	msgWhereTooShort     = "المرجو كتابة اسم الجماعة أو الدائرة."
	msgRequestContact    = "أخيرا، شارك رقم هاتفك عبر الزر أسفله حتى يتواصل معك مكتب النائب. يقبل فقط رقمك الشخصي."
	msgContactRequired   = "المرجو استعمال زر مشاركة الهاتف أسفله."
	msgContactNotYours   = "يمكن مشاركة رقمك الشخصي فقط، وليس جهة اتصال أخرى."
	msgRequestReceived   = "توصلنا بطلبك، سيتواصل معك مكتب النائب في أقرب وقت."
	msgRequestDuplicate  = "طلبك السابق قيد المعالجة، سيتواصل معك مكتب النائب قريبا."
	msgSubmitFailed      = "وقع خلل تقني مؤقت، المرجو إعادة المحاولة بعد قليل."
)

func welcomeText(tenant *domain.TenantConfig) string {
	name := tenant.DisplayName
	if name == "" {
		name = "النائب"
	}
	return fmt.Sprintf("مرحبا بك في البوت الرسمي للنائب %s.\nاختر من القائمة أسفله:", name)
}

func mainKeyboard() [][]string {
	return [][]string{
		{btnAbout, btnPrograms},
		{btnCommitments, btnQuestions},
		{btnFeedback, btnRequest},
		{btnOther},
	}
}

func aboutKeyboard() [][]string {
	return [][]string{
		{btnBio, btnParty},
		{btnConstituency, btnOffices},
		{btnBack},
	}
}

func otherKeyboard() [][]string {
	return [][]string{
		{btnHowToReach, btnAboutPlatform},
		{btnBack},
	}
}

func questionEntryKeyboard() [][]string {
	return [][]string{
		{btnBrowse},
		{btnAsk},
		{btnBack},
	}
}

func viewMethodKeyboard() [][]string {
	return [][]string{
		{btnByCategory, btnBySearch},
		{btnBack},
	}
}

func askEntryKeyboard() [][]string {
	return [][]string{
		{btnContinue},
		{btnBack},
	}
}

func resultsKeyboard() [][]string {
	return [][]string{
		{btnMore},
		{btnBack},
	}
}

func backKeyboard() [][]string {
	return [][]string{{btnBack}}
}

func topicsKeyboard(topics []string) [][]string {
	rows := make([][]string, 0, len(topics)/2+2)
	for i := 0; i < len(topics); i += 2 {
		end := i + 2
		if end > len(topics) {
			end = len(topics)
		}
		rows = append(rows, topics[i:end])
	}
	return append(rows, []string{btnBack})
}

func programsText(tenant *domain.TenantConfig) string {
	if len(tenant.Profile.Programs) == 0 {
		return "لم يتم نشر برنامج النائب بعد."
	}
	var b strings.Builder
	b.WriteString("برنامج النائب:\n")
	for i, item := range tenant.Profile.Programs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func commitmentsText(tenant *domain.TenantConfig) string {
	if len(tenant.Profile.Commitments) == 0 {
		return "لم يتم نشر التزامات النائب بعد."
	}
	var b strings.Builder
	b.WriteString("التزامات النائب:\n")
	for i, item := range tenant.Profile.Commitments {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func officesText(tenant *domain.TenantConfig) string {
	if len(tenant.Profile.Offices) == 0 {
		return "لم يتم نشر مكاتب التواصل بعد."
	}
	var b strings.Builder
	b.WriteString("مكاتب التواصل:\n")
	for _, office := range tenant.Profile.Offices {
		fmt.Fprintf(&b, "• %s — %s", office.Name, office.Address)
		if office.Hours != "" {
			fmt.Fprintf(&b, " (%s)", office.Hours)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func answeredQuestionText(submission domain.Submission) string {
	return fmt.Sprintf("❓ %s\n\n✅ %s", submission.Text, submission.Answer)
}

func operatorRequestText(tenant *domain.TenantConfig, submission *domain.Submission) string {
	return fmt.Sprintf(
		"طلب لقاء جديد للنائب %s\nالاسم: %s\nالصفة: %s\nالجماعة: %s\nالهاتف: %s",
		tenant.DisplayName,
		submission.AuthorName,
		submission.AuthorRole,
		submission.AuthorConstituency,
		submission.Phone,
	)
}
